package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User       UserRepository
	Thesis     ThesisRepository
	Request    SupervisionRequestRepository
	Deadline   DeadlineRepository
	Transition TransitionRepository
	Review     ReviewRepository
	Committee  CommitteeRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		Thesis:     NewThesisRepo(db),
		Request:    NewSupervisionRequestRepo(db),
		Deadline:   NewDeadlineRepo(db),
		Transition: NewTransitionRepo(db),
		Review:     NewReviewRepo(db),
		Committee:  NewCommitteeRepo(db),
	}
}

// WithTx 返回绑定到事务 tx 的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务内执行 fn，fn 返回错误时整体回滚
// 未绑定数据库（单元测试中手工组装的聚合）时直接以自身调用 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Ping 检查数据库连通性
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Page 分页参数，Limit<=0 表示不分页
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Offset(p.Offset).Limit(p.Limit)
	}
	return db
}
