package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
)

type fakeRSVPStore struct {
	event *models.Event
	rsvps map[uuid.UUID]models.RSVPStatus
}

func (f *fakeRSVPStore) GetByID(_ context.Context, chapterID, eventID uuid.UUID) (*models.Event, error) {
	if f.event == nil || f.event.ID != eventID || f.event.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	return f.event, nil
}

func (f *fakeRSVPStore) CountGoingOthers(_ context.Context, eventID, userID uuid.UUID) (int, error) {
	n := 0
	for id, status := range f.rsvps {
		if id != userID && status == models.RSVPGoing {
			n++
		}
	}
	return n, nil
}

func (f *fakeRSVPStore) UpsertRSVP(_ context.Context, eventID, userID uuid.UUID, status models.RSVPStatus) (*models.RSVP, error) {
	if f.rsvps == nil {
		f.rsvps = make(map[uuid.UUID]models.RSVPStatus)
	}
	f.rsvps[userID] = status
	return &models.RSVP{ID: uuid.New(), EventID: eventID, UserID: userID, Status: status}, nil
}

func newRSVPRouter(store rsvpStore, chapter *models.Chapter, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{rsvps: store, logger: zap.NewNop()}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextChapter, chapter)
		c.Set(auth.ContextClaims, &auth.Claims{UserID: userID})
	})
	r.PUT("/api/chapters/:slug/events/:id/rsvp", h.UpsertRSVP)
	return r
}

func putRSVP(r *gin.Engine, eventID uuid.UUID, status string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut,
		"/api/chapters/sigma/events/"+eventID.String()+"/rsvp",
		strings.NewReader(`{"status":"`+status+`"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestUpsertRSVPCapacity(t *testing.T) {
	chapter := &models.Chapter{ID: uuid.New(), Slug: "sigma"}
	capacity := 2
	newFullEvent := func(extraGoing int) *fakeRSVPStore {
		store := &fakeRSVPStore{
			event: &models.Event{ID: uuid.New(), ChapterID: chapter.ID, Title: "Formal", Capacity: &capacity},
			rsvps: make(map[uuid.UUID]models.RSVPStatus),
		}
		for i := 0; i < extraGoing; i++ {
			store.rsvps[uuid.New()] = models.RSVPGoing
		}
		return store
	}

	t.Run("going rejected when others fill the event", func(t *testing.T) {
		store := newFullEvent(2)
		userID := uuid.New()
		r := newRSVPRouter(store, chapter, userID)

		w := putRSVP(r, store.event.ID, "going")
		require.Equal(t, http.StatusConflict, w.Code)
		require.NotContains(t, store.rsvps, userID)
	})

	t.Run("resubmitting going keeps an already held spot", func(t *testing.T) {
		store := newFullEvent(1)
		userID := uuid.New()
		store.rsvps[userID] = models.RSVPGoing

		r := newRSVPRouter(store, chapter, userID)
		w := putRSVP(r, store.event.ID, "going")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, models.RSVPGoing, store.rsvps[userID])
	})

	t.Run("switching away from going always allowed", func(t *testing.T) {
		store := newFullEvent(1)
		userID := uuid.New()
		store.rsvps[userID] = models.RSVPGoing

		r := newRSVPRouter(store, chapter, userID)
		w := putRSVP(r, store.event.ID, "not_going")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, models.RSVPNotGoing, store.rsvps[userID])
	})

	t.Run("no capacity means no limit", func(t *testing.T) {
		store := newFullEvent(5)
		store.event.Capacity = nil
		userID := uuid.New()

		r := newRSVPRouter(store, chapter, userID)
		w := putRSVP(r, store.event.ID, "going")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown event is 404", func(t *testing.T) {
		store := newFullEvent(0)
		r := newRSVPRouter(store, chapter, uuid.New())

		w := putRSVP(r, uuid.New(), "going")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid status is 400", func(t *testing.T) {
		store := newFullEvent(0)
		r := newRSVPRouter(store, chapter, uuid.New())

		w := putRSVP(r, store.event.ID, "perhaps")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
