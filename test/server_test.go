package test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"attesto/internal/consent"
	"attesto/internal/ledger"
	"attesto/internal/membership"
	"attesto/internal/platform/metrics"
	"attesto/internal/platform/middleware"
	"attesto/internal/record"
	"attesto/internal/removal"
	"attesto/internal/subject"
	subjecthandler "attesto/internal/subject/handler"
	"attesto/internal/syncqueue"
	"attesto/pkg/testutil"
)

const signingKey = "test-signing-key"

func signToken(t *testing.T, actorID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": actorID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// newServer assembles the full middleware and handler stack against
// in-memory stores, the way main does without external infrastructure.
func newServer(t *testing.T) (http.Handler, *ledger.InMemoryDirectory, *record.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	records := record.NewInMemoryStore()
	registry := membership.NewInMemoryRegistry()
	directory := ledger.NewInMemoryDirectory()
	queue := syncqueue.New(syncqueue.NewInMemoryStore(), logger)
	m := metrics.NewWith(prometheus.NewRegistry())
	coordinator := ledger.NewCoordinator(ledger.NewInMemoryClient(), directory, queue, m, logger)

	orchestrator := subject.NewOrchestrator(
		records,
		consent.NewService(consent.NewInMemoryStore(), registry, logger),
		removal.NewService(removal.NewInMemoryStore(), registry, logger),
		registry,
		coordinator,
		directory,
		directory,
		m,
		logger,
	)
	flows := subject.NewFlowRegistry(orchestrator)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(middleware.NewHMACValidator(signingKey), logger))
		subjecthandler.New(orchestrator, flows, logger).Register(r)
	})
	return r, directory, records
}

func TestServerEndToEnd(t *testing.T) {
	router, directory, records := newServer(t)
	if err := records.Put(t.Context(), record.Record{
		ID:         "rec-1",
		Title:      "Discharge summary",
		UploaderID: "owen",
		Owners:     []string{"owen"},
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	directory.SetKey("alice", "key-alice")

	ownerToken := signToken(t, "owen")
	aliceToken := signToken(t, "alice")

	do := func(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
		t.Helper()
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	testutil.Given(t, "a record with an owner", func(t *testing.T) {
		testutil.When(t, "an unauthenticated client calls the API", func(t *testing.T) {
			rec := do(t, http.MethodGet, "/me/requests", "", "")

			testutil.Then(t, "it is rejected", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "the owner invites a subject", func(t *testing.T) {
			rec := do(t, http.MethodPost, "/records/rec-1/subjects/invitations", ownerToken,
				`{"subject_id":"alice","role":"viewer"}`)

			testutil.Then(t, "the request is created", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}
			})
		})

		testutil.When(t, "the subject sees it in their inbox and accepts", func(t *testing.T) {
			inbox := do(t, http.MethodGet, "/me/requests", aliceToken, "")
			if inbox.Code != http.StatusOK {
				t.Fatalf("inbox: expected status %d, got %d", http.StatusOK, inbox.Code)
			}
			if !strings.Contains(inbox.Body.String(), "rec-1") {
				t.Fatalf("inbox missing pending request: %s", inbox.Body.String())
			}

			rec := do(t, http.MethodPost, "/records/rec-1/subjects/requests/accept", aliceToken,
				`{"record_hash":"hash-1"}`)

			testutil.Then(t, "they are linked and anchored", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}
				if !strings.Contains(rec.Body.String(), `"anchored":true`) {
					t.Fatalf("expected anchored result: %s", rec.Body.String())
				}

				view := do(t, http.MethodGet, "/records/rec-1/subjects/", ownerToken, "")
				if !strings.Contains(view.Body.String(), "alice") {
					t.Fatalf("expected alice in member list: %s", view.Body.String())
				}
			})
		})

		testutil.When(t, "the subject leaves again", func(t *testing.T) {
			rec := do(t, http.MethodDelete, "/records/rec-1/subjects/self", aliceToken,
				`{"reason":"privacy_concern"}`)

			testutil.Then(t, "membership and the anchor are gone", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}

				view := do(t, http.MethodGet, "/records/rec-1/subjects/", ownerToken, "")
				if !strings.Contains(view.Body.String(), `"members":[]`) {
					t.Fatalf("expected empty member list: %s", view.Body.String())
				}
			})
		})
	})
}
