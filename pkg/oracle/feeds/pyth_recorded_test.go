package feeds

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real Hermes price call.
// It skips by default if the cassette is absent and RECORD_CASSETTES != 1.
func TestPythSource_GetPrice_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "pyth_latest")
	if _, err := os.Stat(cassette + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s.yaml", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	src := NewPythSource(WithPythHTTPClient(&http.Client{Transport: r}))
	quote, err := src.GetPrice(context.Background(), "ETH")
	assert.NoError(t, err, "GetPrice should not error")
	assert.NotNil(t, quote, "quote should not be nil")
	if quote != nil {
		assert.Greater(t, quote.Price, 0.0, "price should be positive")
		assert.Equal(t, "pyth", quote.Source)
	}
}
