package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/clients/push"
	"github.com/gatherhub/gatherhub-backend/internal/handlers"
	"github.com/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
	"github.com/gatherhub/gatherhub-backend/internal/repos"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type stubPushClient struct{}

func (stubPushClient) SendToTopic(ctx context.Context, topicKey string, msg push.Message) (*push.Receipt, error) {
	return &push.Receipt{MessageID: "stub"}, nil
}

func (stubPushClient) SendToEndpoints(ctx context.Context, endpoints []string, msg push.Message) (*push.Receipt, error) {
	return &push.Receipt{MessageID: "stub", Delivered: len(endpoints)}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	userStore := repos.NewMemoryUserStore()
	gatheringStore := repos.NewMemoryGatheringStore()

	directory := services.NewDirectoryService(userStore, log)
	guard, err := services.NewAccessGuard(log, directory, services.AuthModePlain, "", time.Hour)
	if err != nil {
		t.Fatalf("init guard: %v", err)
	}
	hub := realtime.NewFeedHub(log)
	dispatcher := services.NewNotificationDispatcher(log, stubPushClient{}, directory, hub, nil, time.Second)
	gatherings := services.NewGatheringService(gatheringStore, dispatcher, log, services.NotifyModeTopic)

	return NewRouter(RouterConfig{
		GatheringHandler:   handlers.NewGatheringHandler(gatherings, guard),
		UserHandler:        handlers.NewUserHandler(directory, guard),
		NotifyHandler:      handlers.NewNotifyHandler(dispatcher),
		FeedHandler:        handlers.NewFeedHandler(hub),
		HealthcheckHandler: handlers.NewHealthcheckHandler(),
		AuthMiddleware:     middleware.NewAuthMiddleware(log, guard),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path, asUser string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set(middleware.IdentityHeader, asUser)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerUsers(t *testing.T, router *gin.Engine, usernames ...string) {
	t.Helper()
	for _, u := range usernames {
		rec := doJSON(t, router, http.MethodPost, "/users/register", "", gin.H{"username": u, "displayName": u})
		if rec.Code != http.StatusOK {
			t.Fatalf("register %s: status=%d body=%s", u, rec.Code, rec.Body.String())
		}
	}
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	router := newTestRouter(t)
	registerUsers(t, router, "ana")

	rec := doJSON(t, router, http.MethodPost, "/users/register", "", gin.H{"username": "ana", "displayName": "Again"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: want=409 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/users/login", "", gin.H{"username": "ana", "endpoint": "device-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["token"] != "ana" {
		t.Fatalf("plain mode token: want=ana got=%v", body["token"])
	}

	rec = doJSON(t, router, http.MethodPost, "/users/login", "", gin.H{"username": "ghost", "endpoint": "device-1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("login unknown user: want=404 got=%d", rec.Code)
	}
}

func TestGatheringLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	registerUsers(t, router, "ana", "bruno")

	create := gin.H{
		"date":          "25/12/2026",
		"time":          "19:30",
		"location":      "Casa da Ana",
		"providedItems": []string{"farofa"},
		"invitedUsers":  []string{"bruno"},
		"hostId":        "ana",
	}

	rec := doJSON(t, router, http.MethodPost, "/gatherings", "", create)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: want=401 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/gatherings", "ana", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rec.Code, rec.Body.String())
	}
	id, _ := decodeBody(t, rec)["id"].(string)
	if id == "" {
		t.Fatalf("create response missing id: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/gatherings?status=active", "ana", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list active: status=%d", rec.Code)
	}
	if gatherings, _ := decodeBody(t, rec)["gatherings"].([]any); len(gatherings) != 1 {
		t.Fatalf("active list: want one gathering, body=%s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/gatherings?status=someday", "ana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter: want=400 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/gatherings/"+id+"/confirm", "bruno", gin.H{
		"name":          "bruno",
		"selectedItems": []string{"bolo"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: status=%d body=%s", rec.Code, rec.Body.String())
	}
	gathering, _ := decodeBody(t, rec)["gathering"].(map[string]any)
	if items, _ := gathering["providedItems"].([]any); len(items) != 2 {
		t.Fatalf("provided items after confirm: body=%s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/users/bruno/invites", "bruno", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("invites: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if invites, _ := decodeBody(t, rec)["invites"].([]any); len(invites) != 0 {
		t.Fatalf("invites after confirm: want none, body=%s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/users/bruno/invites", "ana", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user invites: want=403 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/gatherings/"+id, "ana", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status=%d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/gatherings/"+id, "ana", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after cancel: want=404 got=%d", rec.Code)
	}
}

func TestUnauthenticatedErrorEnvelope(t *testing.T) {
	router := newTestRouter(t)

	for name, asUser := range map[string]string{"missing identity": "", "unknown identity": "ghost"} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodGet, "/gatherings", asUser, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status: want=401 got=%d", rec.Code)
			}
			envelope, _ := decodeBody(t, rec)["error"].(map[string]any)
			if envelope == nil {
				t.Fatalf("401 must carry the error envelope, body=%s", rec.Body.String())
			}
			if envelope["code"] != "unauthorized" {
				t.Fatalf("error code: want=unauthorized got=%v", envelope["code"])
			}
			if msg, _ := envelope["message"].(string); msg == "" {
				t.Fatalf("error message missing, body=%s", rec.Body.String())
			}
		})
	}
}

func TestNotifyEndpointValidation(t *testing.T) {
	router := newTestRouter(t)
	registerUsers(t, router, "ana")

	rec := doJSON(t, router, http.MethodPost, "/notify", "ana", gin.H{
		"target": gin.H{},
		"title":  "t",
		"body":   "b",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty target: want=400 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/notify", "ana", gin.H{
		"target": gin.H{"topic": "x", "userIds": []string{"ana"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double target: want=400 got=%d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/notify", "ana", gin.H{
		"target": gin.H{"topic": "announcements"},
		"title":  "t",
		"body":   "b",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("topic notify: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if receipt, _ := decodeBody(t, rec)["deliveryReceipt"].(map[string]any); receipt == nil {
		t.Fatalf("missing deliveryReceipt: %s", rec.Body.String())
	}
}
