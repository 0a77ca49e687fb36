package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flashsale/sale"
)

// Order is the durable row for one committed reservation. buyer_id carries
// its own unique index: the relational store independently refuses a second
// order per buyer even if a duplicate event slips through.
type Order struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	OrderID     string    `gorm:"column:order_id;size:191;uniqueIndex;not null"`
	BuyerID     string    `gorm:"column:buyer_id;size:191;uniqueIndex;not null"`
	ProductID   string    `gorm:"column:product_id;size:191;not null"`
	PurchasedAt time.Time `gorm:"column:purchased_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string {
	return "orders"
}

type MySQLRepository struct {
	DB *gorm.DB
}

func NewMySQLRepository(db *gorm.DB) *MySQLRepository {
	return &MySQLRepository{DB: db}
}

// Migrate creates or updates the orders table.
func (r *MySQLRepository) Migrate() error {
	return r.DB.AutoMigrate(&Order{})
}

// SaveOrder inserts with an OnConflict(DoNothing) clause so replayed events
// are no-ops. Returns false when the row already existed.
func (r *MySQLRepository) SaveOrder(ctx context.Context, o sale.Order) (bool, error) {
	row := Order{
		OrderID:     o.OrderID,
		BuyerID:     o.BuyerID,
		ProductID:   o.ProductID,
		PurchasedAt: o.PurchasedAt,
	}
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *MySQLRepository) HasOrder(ctx context.Context, buyerID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&Order{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count > 0, err
}
