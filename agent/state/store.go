package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence contract used by the turn processor and the HTTP
// layer. One conversational turn runs inside a single RunInTx scope.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	GetOrCreateUser(ctx context.Context, externalID string) (*User, error)

	// CreateSession demotes the user's previous current records and creates
	// a fresh session with an empty onboarding record marked current.
	CreateSession(ctx context.Context, userID int64) (*Session, *Record, error)
	SessionByID(ctx context.Context, userID, sessionID int64) (*Session, error)
	SessionByPublicID(ctx context.Context, userID int64, publicID string) (*Session, error)
	ListSessions(ctx context.Context, userID int64) ([]Session, error)
	LatestActiveSession(ctx context.Context, userID int64) (*Session, error)
	SetSessionStatus(ctx context.Context, sessionID int64, status SessionStatus) error

	RecordBySession(ctx context.Context, sessionID int64) (*Record, error)
	CurrentRecord(ctx context.Context, userID int64) (*Record, error)
	SaveRecord(ctx context.Context, rec *Record) error

	ListProducts(ctx context.Context, onboardingID int64) ([]Product, error)
	FindProduct(ctx context.Context, onboardingID int64, productID string) (*Product, error)
	InsertProduct(ctx context.Context, product *Product) error
	SaveProduct(ctx context.Context, product *Product) error

	AppendMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error)
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)
}

// BunStore implements Store on Postgres via bun. The table namespace lets
// one schema host independent table sets (for example an internal-testing
// prefix), so there is a single implementation instead of parallel
// production and test variants.
type BunStore struct {
	db        bun.IDB
	namespace string
}

func NewBunStore(db *bun.DB, namespace string) *BunStore {
	return &BunStore{db: db, namespace: strings.TrimSpace(namespace)}
}

func (s *BunStore) table(name, alias string) string {
	return s.namespace + name + " AS " + alias
}

// EnsureSchema creates the namespaced tables when they do not exist yet.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	models := []struct {
		model any
		name  string
	}{
		{(*User)(nil), "users"},
		{(*Session)(nil), "chat_sessions"},
		{(*Message)(nil), "chat_messages"},
		{(*Record)(nil), "onboarding_records"},
		{(*Product)(nil), "products"},
	}

	for _, m := range models {
		if _, err := s.db.NewCreateTable().
			Model(m.model).
			ModelTableExpr(s.namespace + m.name).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create table %s%s: %w", s.namespace, m.name, err)
		}
	}
	return nil
}

func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		// Already inside a transaction scope.
		return fn(ctx, s)
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunStore{db: tx, namespace: s.namespace})
	})
}

func (s *BunStore) GetOrCreateUser(ctx context.Context, externalID string) (*User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errors.New("external user id is empty")
	}

	user := new(User)
	err := s.db.NewSelect().
		Model(user).
		ModelTableExpr(s.table("users", "u")).
		Where("u.external_id = ?", externalID).
		Scan(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	user = &User{ExternalID: externalID}
	if _, err := s.db.NewInsert().
		Model(user).
		ModelTableExpr(s.namespace + "users AS u").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *BunStore) CreateSession(ctx context.Context, userID int64) (*Session, *Record, error) {
	if _, err := s.db.NewUpdate().
		Model((*Record)(nil)).
		ModelTableExpr(s.namespace+"onboarding_records AS r").
		Set("is_current = FALSE").
		Where("r.user_id = ?", userID).
		Where("r.is_current = TRUE").
		Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("demote previous records: %w", err)
	}

	session := &Session{
		PublicID: uuid.NewString(),
		UserID:   userID,
		Status:   SessionActive,
	}
	if _, err := s.db.NewInsert().
		Model(session).
		ModelTableExpr(s.namespace + "chat_sessions AS s").
		Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	rec := &Record{
		SessionID:    session.ID,
		UserID:       userID,
		CurrentStage: StageIndustry,
		IsCurrent:    true,
	}
	if _, err := s.db.NewInsert().
		Model(rec).
		ModelTableExpr(s.namespace + "onboarding_records AS r").
		Exec(ctx); err != nil {
		return nil, nil, fmt.Errorf("create onboarding record: %w", err)
	}

	return session, rec, nil
}

func (s *BunStore) SessionByID(ctx context.Context, userID, sessionID int64) (*Session, error) {
	session := new(Session)
	err := s.db.NewSelect().
		Model(session).
		ModelTableExpr(s.table("chat_sessions", "s")).
		Where("s.id = ?", sessionID).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *BunStore) SessionByPublicID(ctx context.Context, userID int64, publicID string) (*Session, error) {
	session := new(Session)
	err := s.db.NewSelect().
		Model(session).
		ModelTableExpr(s.table("chat_sessions", "s")).
		Where("s.public_id = ?", strings.TrimSpace(publicID)).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *BunStore) ListSessions(ctx context.Context, userID int64) ([]Session, error) {
	var sessions []Session
	err := s.db.NewSelect().
		Model(&sessions).
		ModelTableExpr(s.table("chat_sessions", "s")).
		Where("s.user_id = ?", userID).
		Order("s.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *BunStore) LatestActiveSession(ctx context.Context, userID int64) (*Session, error) {
	session := new(Session)
	err := s.db.NewSelect().
		Model(session).
		ModelTableExpr(s.table("chat_sessions", "s")).
		Where("s.user_id = ?", userID).
		Where("s.status = ?", SessionActive).
		Order("s.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest session: %w", err)
	}
	return session, nil
}

func (s *BunStore) SetSessionStatus(ctx context.Context, sessionID int64, status SessionStatus) error {
	q := s.db.NewUpdate().
		Model((*Session)(nil)).
		ModelTableExpr(s.namespace+"chat_sessions AS s").
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("s.id = ?", sessionID)
	if status == SessionCompleted {
		q = q.Set("completed_at = ?", time.Now().UTC())
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	return nil
}

func (s *BunStore) RecordBySession(ctx context.Context, sessionID int64) (*Record, error) {
	rec := new(Record)
	err := s.db.NewSelect().
		Model(rec).
		ModelTableExpr(s.table("onboarding_records", "r")).
		Where("r.chat_session_id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load onboarding record: %w", err)
	}
	return rec, nil
}

func (s *BunStore) CurrentRecord(ctx context.Context, userID int64) (*Record, error) {
	rec := new(Record)
	err := s.db.NewSelect().
		Model(rec).
		ModelTableExpr(s.table("onboarding_records", "r")).
		Where("r.user_id = ?", userID).
		Where("r.is_current = TRUE").
		Order("r.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load current record: %w", err)
	}
	return rec, nil
}

func (s *BunStore) SaveRecord(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	if _, err := s.db.NewUpdate().
		Model(rec).
		ModelTableExpr(s.namespace + "onboarding_records AS r").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("save onboarding record: %w", err)
	}
	return nil
}

func (s *BunStore) ListProducts(ctx context.Context, onboardingID int64) ([]Product, error) {
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		ModelTableExpr(s.table("products", "p")).
		Where("p.onboarding_id = ?", onboardingID).
		Order("p.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *BunStore) FindProduct(ctx context.Context, onboardingID int64, productID string) (*Product, error) {
	product := new(Product)
	err := s.db.NewSelect().
		Model(product).
		ModelTableExpr(s.table("products", "p")).
		Where("p.onboarding_id = ?", onboardingID).
		Where("p.product_id = ?", productID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (s *BunStore) InsertProduct(ctx context.Context, product *Product) error {
	if _, err := s.db.NewInsert().
		Model(product).
		ModelTableExpr(s.namespace + "products AS p").
		Exec(ctx); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *BunStore) SaveProduct(ctx context.Context, product *Product) error {
	if _, err := s.db.NewUpdate().
		Model(product).
		ModelTableExpr(s.namespace + "products AS p").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (s *BunStore) AppendMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error) {
	message := &Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if _, err := s.db.NewInsert().
		Model(message).
		ModelTableExpr(s.namespace + "chat_messages AS m").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return message, nil
}

func (s *BunStore) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	var messages []Message
	err := s.db.NewSelect().
		Model(&messages).
		ModelTableExpr(s.table("chat_messages", "m")).
		Where("m.session_id = ?", sessionID).
		Order("m.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

var _ Store = (*BunStore)(nil)
