package opensearch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bulkServer answers _bulk requests with one item per indexed document.
func bulkServer(t *testing.T, status int) (*httptest.Server, func() string) {
	t.Helper()
	var mu sync.Mutex
	var bodies bytes.Buffer
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies.Write(body)
		mu.Unlock()

		docs := 0
		sc := bufio.NewScanner(bytes.NewReader(body))
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				docs++
			}
		}
		docs /= 2

		items := make([]string, docs)
		for i := range items {
			items[i] = fmt.Sprintf(`{"index":{"_index":"bulk","status":%d}}`, status)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"took":1,"errors":%t,"items":[%s]}`, status >= 300, strings.Join(items, ","))
	}))
	t.Cleanup(ts.Close)
	return ts, func() string {
		mu.Lock()
		defer mu.Unlock()
		return bodies.String()
	}
}

func testBatch(texts ...string) command.Batch {
	cmds := make([]command.Command, len(texts))
	for i, txt := range texts {
		cmds[i] = command.Command{Text: txt, Timestamp: time.Unix(1700000000, 0)}
	}
	b, _ := command.NewBatch(cmds)
	return b
}

func TestOpenSearchSink_IndexesEveryCommand(t *testing.T) {
	ts, bodies := bulkServer(t, 201)

	s, err := New("search", Config{URL: ts.URL, Index: "bulk", Host: "h1", Labels: map[string]string{"k": "v"}})
	require.NoError(t, err)

	require.NoError(t, s.ProcessBatch(testBatch("a", "b")))

	got := bodies()
	assert.Contains(t, got, `"message":"a"`)
	assert.Contains(t, got, `"message":"b"`)
	assert.Contains(t, got, `"sink":"search"`)
	assert.Contains(t, got, `"host":"h1"`)
}

func TestOpenSearchSink_FailedItems(t *testing.T) {
	ts, _ := bulkServer(t, 500)

	s, err := New("search", Config{URL: ts.URL, Index: "bulk"})
	require.NoError(t, err)

	err = s.ProcessBatch(testBatch("a"))
	require.Error(t, err)
	assert.True(t, sink.IsWriteError(err))
}

func TestOpenSearchSink_MissingConfig(t *testing.T) {
	if _, err := New("search", Config{}); err == nil {
		t.Fatal("expected error when url or index missing")
	}
}
