package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"readloom/internal/auth"
	"readloom/internal/config"
	"readloom/internal/db"
	"readloom/internal/middleware"
	"readloom/internal/models"
	"readloom/internal/payments"
	"readloom/internal/services"
	"readloom/internal/store"
	"readloom/internal/video"
	"readloom/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, email, passwordHash, displayName string, startingPoints int64) error
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
	isAdminFn    func(ctx context.Context, userID string) (bool, error)
	getPointsFn  func(ctx context.Context, userID string) (int64, error)
	listAllFn    func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, email, passwordHash, displayName string, startingPoints int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, email, passwordHash, displayName, startingPoints)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if s.isAdminFn == nil {
		return false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubUserStore) GetPoints(ctx context.Context, userID string) (int64, error) {
	if s.getPointsFn == nil {
		return 0, nil
	}
	return s.getPointsFn(ctx, userID)
}

func (s stubUserStore) ListAll(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

type stubBookStore struct {
	createFn          func(ctx context.Context, tx store.Execer, input store.BookInput) error
	getByIDFn         func(ctx context.Context, bookID string) (models.Book, error)
	listFn            func(ctx context.Context, filter store.BookFilter) ([]models.Book, error)
	setAvailabilityFn func(ctx context.Context, tx store.Execer, bookID string, isAvailable bool) error
	setDeletedFn      func(ctx context.Context, tx store.Execer, bookID string, isDeleted bool) error
	purgeFn           func(ctx context.Context, tx store.Execer, bookID string) error
}

func (s stubBookStore) Create(ctx context.Context, tx store.Execer, input store.BookInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubBookStore) GetByID(ctx context.Context, bookID string) (models.Book, error) {
	if s.getByIDFn == nil {
		return models.Book{ID: bookID}, nil
	}
	return s.getByIDFn(ctx, bookID)
}

func (s stubBookStore) List(ctx context.Context, filter store.BookFilter) ([]models.Book, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubBookStore) SetAvailability(ctx context.Context, tx store.Execer, bookID string, isAvailable bool) error {
	if s.setAvailabilityFn == nil {
		return nil
	}
	return s.setAvailabilityFn(ctx, tx, bookID, isAvailable)
}

func (s stubBookStore) SetDeleted(ctx context.Context, tx store.Execer, bookID string, isDeleted bool) error {
	if s.setDeletedFn == nil {
		return nil
	}
	return s.setDeletedFn(ctx, tx, bookID, isDeleted)
}

func (s stubBookStore) Purge(ctx context.Context, tx store.Execer, bookID string) error {
	if s.purgeFn == nil {
		return nil
	}
	return s.purgeFn(ctx, tx, bookID)
}

type stubWishlistStore struct {
	addFn         func(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error)
	removeFn      func(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error)
	countByBookFn func(ctx context.Context, bookID string) (int64, error)
	listByUserFn  func(ctx context.Context, userID string) ([]string, error)
}

func (s stubWishlistStore) Add(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error) {
	if s.addFn == nil {
		return 1, nil
	}
	return s.addFn(ctx, tx, userID, bookID)
}

func (s stubWishlistStore) Remove(ctx context.Context, tx store.Execer, userID, bookID string) (int64, error) {
	if s.removeFn == nil {
		return 1, nil
	}
	return s.removeFn(ctx, tx, userID, bookID)
}

func (s stubWishlistStore) CountByBook(ctx context.Context, bookID string) (int64, error) {
	if s.countByBookFn == nil {
		return 0, nil
	}
	return s.countByBookFn(ctx, bookID)
}

func (s stubWishlistStore) ListBookIDsByUser(ctx context.Context, userID string) ([]string, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubExchangePointStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.ExchangePointInput) error
	updateFn       func(ctx context.Context, tx store.Execer, input store.ExchangePointInput) (int64, error)
	getByIDFn      func(ctx context.Context, id string) (models.ExchangePoint, error)
	listActiveFn   func(ctx context.Context) ([]models.ExchangePoint, error)
	setActiveFn    func(ctx context.Context, tx store.Execer, id string, isActive bool) (int64, error)
	isReferencedFn func(ctx context.Context, id string) (bool, error)
}

func (s stubExchangePointStore) Create(ctx context.Context, tx store.Execer, input store.ExchangePointInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubExchangePointStore) Update(ctx context.Context, tx store.Execer, input store.ExchangePointInput) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, input)
}

func (s stubExchangePointStore) GetByID(ctx context.Context, id string) (models.ExchangePoint, error) {
	if s.getByIDFn == nil {
		return models.ExchangePoint{ID: id, IsActive: true}, nil
	}
	return s.getByIDFn(ctx, id)
}

func (s stubExchangePointStore) ListActive(ctx context.Context) ([]models.ExchangePoint, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx)
}

func (s stubExchangePointStore) SetActive(ctx context.Context, tx store.Execer, id string, isActive bool) (int64, error) {
	if s.setActiveFn == nil {
		return 1, nil
	}
	return s.setActiveFn(ctx, tx, id, isActive)
}

func (s stubExchangePointStore) IsReferenced(ctx context.Context, id string) (bool, error) {
	if s.isReferencedFn == nil {
		return false, nil
	}
	return s.isReferencedFn(ctx, id)
}

type stubExchangeStore struct {
	getByIDFn          func(ctx context.Context, exchangeID string) (models.Exchange, error)
	listByUserFn       func(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error)
	hasActiveForBookFn func(ctx context.Context, bookID string) (bool, error)
	hasAnyForBookFn    func(ctx context.Context, bookID string) (bool, error)
}

func (s stubExchangeStore) GetByID(ctx context.Context, exchangeID string) (models.Exchange, error) {
	if s.getByIDFn == nil {
		return models.Exchange{ID: exchangeID}, nil
	}
	return s.getByIDFn(ctx, exchangeID)
}

func (s stubExchangeStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubExchangeStore) HasActiveForBook(ctx context.Context, bookID string) (bool, error) {
	if s.hasActiveForBookFn == nil {
		return false, nil
	}
	return s.hasActiveForBookFn(ctx, bookID)
}

func (s stubExchangeStore) HasAnyForBook(ctx context.Context, bookID string) (bool, error) {
	if s.hasAnyForBookFn == nil {
		return false, nil
	}
	return s.hasAnyForBookFn(ctx, bookID)
}

type stubLedgerStore struct {
	insertFn     func(ctx context.Context, tx store.Execer, input store.PointTransactionInput) error
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error)
	reconcileFn  func(ctx context.Context) ([]store.BalanceDrift, error)
}

func (s stubLedgerStore) InsertTransaction(ctx context.Context, tx store.Execer, input store.PointTransactionInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubLedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PointTransaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubLedgerStore) Reconcile(ctx context.Context) ([]store.BalanceDrift, error) {
	if s.reconcileFn == nil {
		return nil, nil
	}
	return s.reconcileFn(ctx)
}

type stubForumStore struct {
	createPostFn     func(ctx context.Context, tx store.Execer, input store.ForumPostInput) error
	createReplyFn    func(ctx context.Context, tx store.Execer, input store.ForumReplyInput) error
	getPostFn        func(ctx context.Context, postID string) (models.ForumPost, error)
	listPostsFn      func(ctx context.Context, bookID string, limit, offset int) ([]models.ForumPost, error)
	listRepliesFn    func(ctx context.Context, postID string) ([]models.ForumReply, error)
	listFlaggedFn    func(ctx context.Context, limit, offset int) ([]models.ForumPost, error)
	setPostFlaggedFn func(ctx context.Context, tx store.Execer, postID string, flagged bool) (int64, error)
}

func (s stubForumStore) CreatePost(ctx context.Context, tx store.Execer, input store.ForumPostInput) error {
	if s.createPostFn == nil {
		return nil
	}
	return s.createPostFn(ctx, tx, input)
}

func (s stubForumStore) CreateReply(ctx context.Context, tx store.Execer, input store.ForumReplyInput) error {
	if s.createReplyFn == nil {
		return nil
	}
	return s.createReplyFn(ctx, tx, input)
}

func (s stubForumStore) GetPost(ctx context.Context, postID string) (models.ForumPost, error) {
	if s.getPostFn == nil {
		return models.ForumPost{ID: postID}, nil
	}
	return s.getPostFn(ctx, postID)
}

func (s stubForumStore) ListPosts(ctx context.Context, bookID string, limit, offset int) ([]models.ForumPost, error) {
	if s.listPostsFn == nil {
		return nil, nil
	}
	return s.listPostsFn(ctx, bookID, limit, offset)
}

func (s stubForumStore) ListReplies(ctx context.Context, postID string) ([]models.ForumReply, error) {
	if s.listRepliesFn == nil {
		return nil, nil
	}
	return s.listRepliesFn(ctx, postID)
}

func (s stubForumStore) ListFlagged(ctx context.Context, limit, offset int) ([]models.ForumPost, error) {
	if s.listFlaggedFn == nil {
		return nil, nil
	}
	return s.listFlaggedFn(ctx, limit, offset)
}

func (s stubForumStore) SetPostFlagged(ctx context.Context, tx store.Execer, postID string, flagged bool) (int64, error) {
	if s.setPostFlaggedFn == nil {
		return 1, nil
	}
	return s.setPostFlaggedFn(ctx, tx, postID, flagged)
}

type stubChatStore struct {
	insertFn     func(ctx context.Context, tx store.Tx, bookID, userID, displayName, message string) (models.ChatMessage, error)
	listByBookFn func(ctx context.Context, bookID string, limit int) ([]models.ChatMessage, error)
}

func (s stubChatStore) Insert(ctx context.Context, tx store.Tx, bookID, userID, displayName, message string) (models.ChatMessage, error) {
	if s.insertFn == nil {
		return models.ChatMessage{ID: 1, BookID: bookID, UserID: userID, DisplayName: displayName, Message: message}, nil
	}
	return s.insertFn(ctx, tx, bookID, userID, displayName, message)
}

func (s stubChatStore) ListByBook(ctx context.Context, bookID string, limit int) ([]models.ChatMessage, error) {
	if s.listByBookFn == nil {
		return nil, nil
	}
	return s.listByBookFn(ctx, bookID, limit)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, action string, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, action string, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, action, limit, offset)
}

type stubExchangeService struct {
	requestFn  func(ctx context.Context, req services.RequestExchangeInput) (string, error)
	approveFn  func(ctx context.Context, exchangeID, actorID string) error
	rejectFn   func(ctx context.Context, exchangeID, actorID string) error
	cancelFn   func(ctx context.Context, exchangeID, actorID string) error
	completeFn func(ctx context.Context, exchangeID, actorID string) error
}

func (s stubExchangeService) Request(ctx context.Context, req services.RequestExchangeInput) (string, error) {
	if s.requestFn == nil {
		return "exchange-1", nil
	}
	return s.requestFn(ctx, req)
}

func (s stubExchangeService) Approve(ctx context.Context, exchangeID, actorID string) error {
	if s.approveFn == nil {
		return nil
	}
	return s.approveFn(ctx, exchangeID, actorID)
}

func (s stubExchangeService) Reject(ctx context.Context, exchangeID, actorID string) error {
	if s.rejectFn == nil {
		return nil
	}
	return s.rejectFn(ctx, exchangeID, actorID)
}

func (s stubExchangeService) Cancel(ctx context.Context, exchangeID, actorID string) error {
	if s.cancelFn == nil {
		return nil
	}
	return s.cancelFn(ctx, exchangeID, actorID)
}

func (s stubExchangeService) Complete(ctx context.Context, exchangeID, actorID string) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, exchangeID, actorID)
}

type stubPaymentService struct {
	createCheckoutFn func(ctx context.Context, userID string, amount int64) (payments.Session, error)
	confirmFn        func(ctx context.Context, sessionID string) (services.CreditResult, error)
	sessionOwnerFn   func(ctx context.Context, sessionID string) (string, error)
}

func (s stubPaymentService) CreateCheckout(ctx context.Context, userID string, amount int64) (payments.Session, error) {
	if s.createCheckoutFn == nil {
		return payments.Session{ID: "points-1", RedirectURL: "https://pay.example/1"}, nil
	}
	return s.createCheckoutFn(ctx, userID, amount)
}

func (s stubPaymentService) Confirm(ctx context.Context, sessionID string) (services.CreditResult, error) {
	if s.confirmFn == nil {
		return services.CreditResult{}, nil
	}
	return s.confirmFn(ctx, sessionID)
}

func (s stubPaymentService) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	if s.sessionOwnerFn == nil {
		return "", nil
	}
	return s.sessionOwnerFn(ctx, sessionID)
}

type stubModerator struct {
	checkFn func(ctx context.Context, text string) bool
}

func (s stubModerator) Check(ctx context.Context, text string) bool {
	if s.checkFn == nil {
		return false
	}
	return s.checkFn(ctx, text)
}

type stubRoomCreator struct {
	createRoomFn func(ctx context.Context, exchangeID string) (video.Room, error)
}

func (s stubRoomCreator) CreateRoom(ctx context.Context, exchangeID string) (video.Room, error) {
	if s.createRoomFn == nil {
		return video.Room{URL: "https://rooms.example/" + exchangeID}, nil
	}
	return s.createRoomFn(ctx, exchangeID)
}

type testDeps struct {
	txRunner       db.TxRunner
	users          UserStore
	books          BookStore
	wishlist       WishlistStore
	exchangePoints ExchangePointStore
	exchanges      ExchangeStore
	ledger         LedgerStore
	forum          ForumStore
	chat           ChatStore
	audit          AuditStore
	exchangeSvc    ExchangeService
	paymentSvc     PaymentService
	moderator      stubModerator
	rooms          stubRoomCreator
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:            "test",
		Port:              "0",
		JWTSecret:         "secret",
		TokenTTL:          time.Minute,
		AllowedOrigins:    "*",
		SignupBonusPoints: 20,
	}
	if deps.txRunner == nil {
		deps.txRunner = fakeTxRunner{}
	}
	if deps.users == nil {
		deps.users = stubUserStore{}
	}
	if deps.books == nil {
		deps.books = stubBookStore{}
	}
	if deps.wishlist == nil {
		deps.wishlist = stubWishlistStore{}
	}
	if deps.exchangePoints == nil {
		deps.exchangePoints = stubExchangePointStore{}
	}
	if deps.exchanges == nil {
		deps.exchanges = stubExchangeStore{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedgerStore{}
	}
	if deps.forum == nil {
		deps.forum = stubForumStore{}
	}
	if deps.chat == nil {
		deps.chat = stubChatStore{}
	}
	if deps.audit == nil {
		deps.audit = stubAuditStore{}
	}
	if deps.exchangeSvc == nil {
		deps.exchangeSvc = stubExchangeService{}
	}
	if deps.paymentSvc == nil {
		deps.paymentSvc = stubPaymentService{}
	}
	return New(deps.txRunner, cfg, deps.users, deps.books, deps.wishlist, deps.exchangePoints, deps.exchanges, deps.ledger, deps.forum, deps.chat, deps.audit, deps.exchangeSvc, deps.paymentSvc, deps.moderator, deps.rooms, websocket.NewHub())
}

func requestWithUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func requestWithURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
