package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) [][]string {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	require.NoError(t, <-errCh)
	return rows
}

func TestStreamCSV(t *testing.T) {
	input := "ein,totrevenue\n123456789,1000\n987654321,2500\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true})
	rows := collectRows(t, rowCh, errCh)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"123456789", "1000"}, rows[0])
	assert.Equal(t, []string{"987654321", "2500"}, rows[1])
}

func TestStreamCSVHeaderChannel(t *testing.T) {
	headerCh := make(chan []string, 1)
	input := "a,b,c\n1,2,3\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	rows := collectRows(t, rowCh, errCh)

	assert.Equal(t, []string{"a", "b", "c"}, <-headerCh)
	require.Len(t, rows, 1)
}

func TestStreamCSVLatin1(t *testing.T) {
	// "Collège Éducatif" encoded as Latin-1 bytes.
	raw := []byte{'n', 'a', 'm', 'e', '\n', 'C', 'o', 'l', 'l', 0xe8, 'g', 'e', ' ', 0xc9, 'd', 'u', 'c', 'a', 't', 'i', 'f', '\n'}
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(string(raw)), CSVOptions{
		HasHeader: true,
		Charset:   "latin1",
	})
	rows := collectRows(t, rowCh, errCh)

	require.Len(t, rows, 1)
	assert.Equal(t, "Collège Éducatif", rows[0][0])
}

func TestStreamCSVUnknownCharset(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a\n1\n"), CSVOptions{Charset: "no-such-encoding"})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown charset")
}

func TestStreamCSVRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\n1,2,3,4\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true})
	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 4)
}

func TestStreamCSVTrimSpace(t *testing.T) {
	input := "a,b\n 1 , 2 \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true, TrimSpace: true})
	rows := collectRows(t, rowCh, errCh)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2"}, rows[0])
}

func TestStreamCSVCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a\n1\n2\n"), CSVOptions{})
	for range rowCh {
	}
	assert.Error(t, <-errCh)
}

func TestReadCSV(t *testing.T) {
	header, rows, err := ReadCSV(context.Background(), strings.NewReader("x,y\n1,2\n3,4\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, header)
	require.Len(t, rows, 2)
}

func TestReadCSVEmpty(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	assert.Error(t, err)
}
