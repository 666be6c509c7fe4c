package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"readloom/internal/models"
	"readloom/internal/store"
)

func TestCreateForumPostFlaggedContentIsKeptHidden(t *testing.T) {
	var saved store.ForumPostInput
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			createPostFn: func(_ context.Context, _ store.Execer, input store.ForumPostInput) error {
				saved = input
				return nil
			},
			getPostFn: func(_ context.Context, postID string) (models.ForumPost, error) {
				return models.ForumPost{ID: postID, Content: "spam", IsFlagged: true}, nil
			},
		},
		moderator: stubModerator{
			checkFn: func(context.Context, string) bool {
				return true
			},
		},
	})

	body := []byte(`{"content":"spam"}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/forum/posts", bytes.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	handler.CreateForumPost(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !saved.IsFlagged {
		t.Fatalf("expected post stored flagged")
	}
	if saved.AuthorID == nil || *saved.AuthorID != "user-1" {
		t.Fatalf("expected author kept on the row")
	}
}

func TestCreateForumPostAnonymousHidesAuthor(t *testing.T) {
	var saved store.ForumPostInput
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			createPostFn: func(_ context.Context, _ store.Execer, input store.ForumPostInput) error {
				saved = input
				return nil
			},
			getPostFn: func(_ context.Context, postID string) (models.ForumPost, error) {
				return models.ForumPost{ID: postID, IsAnonymous: true}, nil
			},
		},
	})

	body := []byte(`{"content":"anyone read this?","is_anonymous":true}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/forum/posts", bytes.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	handler.CreateForumPost(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var payload models.ForumPost
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.AuthorID != nil {
		t.Fatalf("expected author hidden on anonymous post")
	}
	if saved.AuthorID != nil {
		t.Fatalf("expected anonymous post stored without an author")
	}
}

func TestCreateForumPostEmptyContent(t *testing.T) {
	handler := newTestHandler(testDeps{})
	body := []byte(`{"content":"   "}`)
	req := requestWithUser(httptest.NewRequest(http.MethodPost, "/forum/posts", bytes.NewReader(body)), "user-1")
	rr := httptest.NewRecorder()
	handler.CreateForumPost(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateForumReplyModerationFailsOpen(t *testing.T) {
	var saved store.ForumReplyInput
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			createReplyFn: func(_ context.Context, _ store.Execer, input store.ForumReplyInput) error {
				saved = input
				return nil
			},
		},
	})

	body := []byte(`{"content":"great book"}`)
	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/forum/posts/post-1/replies", bytes.NewReader(body)), "user-2"), "id", "post-1")
	rr := httptest.NewRecorder()
	handler.CreateForumReply(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if saved.IsFlagged {
		t.Fatalf("expected unflagged reply when moderation returns nothing")
	}
	if saved.PostID != "post-1" {
		t.Fatalf("expected post-1, got %s", saved.PostID)
	}
}

func TestGetForumPostHidesFlagged(t *testing.T) {
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			getPostFn: func(_ context.Context, postID string) (models.ForumPost, error) {
				return models.ForumPost{ID: postID, IsFlagged: true}, nil
			},
		},
	})

	req := requestWithURLParam(httptest.NewRequest(http.MethodGet, "/forum/posts/post-1", nil), "id", "post-1")
	rr := httptest.NewRecorder()
	handler.GetForumPost(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListForumPostsStripsAnonymousAuthors(t *testing.T) {
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			listPostsFn: func(context.Context, string, int, int) ([]models.ForumPost, error) {
				return []models.ForumPost{
					{ID: "post-1", AuthorID: stringPtr("user-1"), IsAnonymous: true},
					{ID: "post-2", AuthorID: stringPtr("user-2")},
				}, nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/forum/posts", nil)
	rr := httptest.NewRecorder()
	handler.ListForumPosts(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload []models.ForumPost
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload[0].AuthorID != nil {
		t.Fatalf("expected anonymous author hidden")
	}
	if payload[1].AuthorID == nil || *payload[1].AuthorID != "user-2" {
		t.Fatalf("expected named author kept")
	}
}

func TestFlagForumPostOverride(t *testing.T) {
	var flaggedTo *bool
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			setPostFlaggedFn: func(_ context.Context, _ store.Execer, _ string, flagged bool) (int64, error) {
				flaggedTo = &flagged
				return 1, nil
			},
		},
	})

	body := []byte(`{"flagged":false}`)
	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/admin/forum/posts/post-1/flag", bytes.NewReader(body)), "admin-1"), "id", "post-1")
	rr := httptest.NewRecorder()
	handler.FlagForumPost(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if flaggedTo == nil || *flaggedTo {
		t.Fatalf("expected flag cleared")
	}
}

func TestFlagForumPostMissing(t *testing.T) {
	handler := newTestHandler(testDeps{
		forum: stubForumStore{
			setPostFlaggedFn: func(context.Context, store.Execer, string, bool) (int64, error) {
				return 0, nil
			},
		},
	})

	body := []byte(`{"flagged":true}`)
	req := requestWithURLParam(requestWithUser(httptest.NewRequest(http.MethodPost, "/admin/forum/posts/post-9/flag", bytes.NewReader(body)), "admin-1"), "id", "post-9")
	rr := httptest.NewRecorder()
	handler.FlagForumPost(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
