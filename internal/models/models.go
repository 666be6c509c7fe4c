package models

import (
	"time"

	"github.com/lib/pq"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	Points       int64     `db:"points" json:"points"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Book struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Author         string         `db:"author" json:"author"`
	Description    string         `db:"description" json:"description"`
	Condition      string         `db:"condition" json:"condition"`
	Location       string         `db:"location" json:"location"`
	Images         pq.StringArray `db:"images" json:"images"`
	Chapters       pq.StringArray `db:"chapters" json:"chapters"`
	PointsCost     int64          `db:"points_cost" json:"points_cost"`
	CurrentOwnerID string         `db:"current_owner_id" json:"current_owner_id"`
	IsAvailable    bool           `db:"is_available" json:"is_available"`
	IsDeleted      bool           `db:"is_deleted" json:"is_deleted"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type ExchangePoint struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Country   string    `db:"country" json:"country"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Exchange struct {
	ID              string    `db:"id" json:"id"`
	BookID          string    `db:"book_id" json:"book_id"`
	FromUserID      string    `db:"from_user_id" json:"from_user_id"`
	ToUserID        string    `db:"to_user_id" json:"to_user_id"`
	ExchangePointID *string   `db:"exchange_point_id" json:"exchange_point_id,omitempty"`
	Status          string    `db:"status" json:"status"`
	PointsCost      int64     `db:"points_cost" json:"points_cost"`
	Escrowed        bool      `db:"escrowed" json:"escrowed"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type PointTransaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Kind        string    `db:"kind" json:"kind"`
	Description string    `db:"description" json:"description"`
	ExchangeID  *string   `db:"exchange_id" json:"exchange_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ForumPost struct {
	ID          string    `db:"id" json:"id"`
	AuthorID    *string   `db:"author_id" json:"author_id,omitempty"`
	BookID      *string   `db:"book_id" json:"book_id,omitempty"`
	Content     string    `db:"content" json:"content"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	IsFlagged   bool      `db:"is_flagged" json:"is_flagged"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ForumReply struct {
	ID          string    `db:"id" json:"id"`
	PostID      string    `db:"post_id" json:"post_id"`
	AuthorID    *string   `db:"author_id" json:"author_id,omitempty"`
	Content     string    `db:"content" json:"content"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	IsFlagged   bool      `db:"is_flagged" json:"is_flagged"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ChatMessage struct {
	ID          int64     `db:"id" json:"id"`
	BookID      string    `db:"book_id" json:"book_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Message     string    `db:"message" json:"message"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
