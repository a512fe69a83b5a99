package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/automercado/automercado/internal/common/apperr"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflictf("email %s is already registered", u.Email)
		}
		return apperr.Wrap(apperr.KindInternal, "create user", err)
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id uint) (*User, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var u User
	if err := db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %d not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "find user", err)
	}
	return &u, nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*User, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var u User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("user %s not found", email)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "find user", err)
	}
	return &u, nil
}

func (r *Repo) Update(ctx context.Context, u *User) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Save(u).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "update user", err)
	}
	return nil
}

// IncrementPublished 发布计数 +1（原子更新，配合车辆创建在同一事务内执行）。
func (r *Repo) IncrementPublished(ctx context.Context, id uint) error {
	return r.incrementCounter(ctx, id, "vehicles_published")
}

// IncrementSold 售出计数 +1（原子更新，配合 mark-sold 在同一事务内执行）。
func (r *Repo) IncrementSold(ctx context.Context, id uint) error {
	return r.incrementCounter(ctx, id, "vehicles_sold")
}

func (r *Repo) incrementCounter(ctx context.Context, id uint, column string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&User{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		column:       gorm.Expr(column + " + 1"),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "increment "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("user %d not found", id)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]User, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := db.Model(&User{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count users", err)
	}
	var users []User
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list users", err)
	}
	return users, total, nil
}
