package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/envelope/internal/httputil"
)

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		url      string
		expected httputil.Page
		errorMsg string
	}{
		{
			name:     "defaults",
			url:      "/v1/keys",
			expected: httputil.Page{Offset: 0, Limit: httputil.DefaultPageLimit},
		},
		{
			name:     "custom window",
			url:      "/v1/keys?offset=10&limit=20",
			expected: httputil.Page{Offset: 10, Limit: 20},
		},
		{
			name:     "max limit",
			url:      "/v1/keys?limit=100",
			expected: httputil.Page{Offset: 0, Limit: httputil.MaxPageLimit},
		},
		{
			name:     "negative offset",
			url:      "/v1/keys?offset=-1",
			errorMsg: "invalid offset parameter: must be a non-negative integer",
		},
		{
			name:     "offset not an integer",
			url:      "/v1/keys?offset=2024-01",
			errorMsg: "invalid offset parameter: must be a non-negative integer",
		},
		{
			name:     "empty offset",
			url:      "/v1/keys?offset=",
			errorMsg: "invalid offset parameter: must be a non-negative integer",
		},
		{
			name:     "limit zero",
			url:      "/v1/keys?limit=0",
			errorMsg: "invalid limit parameter: must be between 1 and 100",
		},
		{
			name:     "limit exceeds max",
			url:      "/v1/keys?limit=101",
			errorMsg: "invalid limit parameter: must be between 1 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.url, nil)

			page, err := httputil.ParsePage(c)

			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				assert.Equal(t, httputil.Page{}, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}

func TestWindow(t *testing.T) {
	versions := []string{"2024-01", "2024-02", "2024-03"}

	tests := []struct {
		name     string
		page     httputil.Page
		expected []string
	}{
		{name: "all", page: httputil.Page{Offset: 0, Limit: 50}, expected: versions},
		{name: "middle", page: httputil.Page{Offset: 1, Limit: 1}, expected: []string{"2024-02"}},
		{name: "tail", page: httputil.Page{Offset: 2, Limit: 50}, expected: []string{"2024-03"}},
		{name: "past end", page: httputil.Page{Offset: 10, Limit: 50}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := httputil.Window(versions, tt.page)
			assert.Equal(t, tt.expected, got)
			assert.NotNil(t, got)
		})
	}

	t.Run("append does not clobber source", func(t *testing.T) {
		got := httputil.Window(versions, httputil.Page{Offset: 0, Limit: 1})
		_ = append(got, "2099-01")
		assert.Equal(t, "2024-02", versions[1])
	})
}
