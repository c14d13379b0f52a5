package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func tagMW(order *[]string, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name+"-in")
			next.ServeHTTP(w, r)
			*order = append(*order, name+"-out")
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}),
		tagMW(&order, "outer"),
		tagMW(&order, "inner"),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer-in", "inner-in", "handler", "inner-out", "outer-out"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestChain_NilMiddlewareSkipped(t *testing.T) {
	var called bool
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
		nil,
		func(next http.Handler) http.Handler { return next },
		nil,
	)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("handler not reached through nil middleware")
	}
}

func TestChain_NoMiddleware(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	w := httptest.NewRecorder()
	Chain(base).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d", w.Code)
	}
}
