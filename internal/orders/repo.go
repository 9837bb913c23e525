package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists pre-orders. Status changes are compare-and-set: a
// row only moves when its current status is one of from.
type Repository interface {
	// CreateIfAbsent reports created=false and returns the stored row when
	// the checkout session was already recorded.
	CreateIfAbsent(ctx context.Context, order *models.Order) (created bool, stored *models.Order, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, next enums.OrderStatus) (bool, error)
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, from []enums.OrderStatus, next enums.OrderStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateIfAbsent(ctx context.Context, order *models.Order) (bool, *models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_session_id"}},
		DoNothing: true,
	}).Create(order)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return true, order, nil
	}
	existing, err := r.FindBySessionID(ctx, order.CheckoutSessionID)
	if err != nil {
		return false, nil, fmt.Errorf("load existing order: %w", err)
	}
	return false, existing, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, ErrInvalidCursor.Message())
	}

	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if email := strings.TrimSpace(filters.Email); email != "" {
		q = q.Where("LOWER(customer_email) = ?", strings.ToLower(email))
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	page, more := pagination.Trim(rows, params.Limit)
	next := ""
	if more {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, next enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID string, from []enums.OrderStatus, next enums.OrderStatus) (int64, error) {
	if paymentIntentID == "" {
		return 0, errors.New("payment intent id is required")
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_intent_id = ? AND status IN ?", paymentIntentID, from).
		Update("status", next)
	return res.RowsAffected, res.Error
}
