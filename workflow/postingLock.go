package workflow

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// PostingLocker serializes lifecycle posting per company. Transitions
// that run without a locker (tests, single-writer tools) pass nil.
type PostingLocker interface {
	Acquire(ctx context.Context, companyId string) (release func(), err error)
}

// MySQLPostingLocker serializes posting per company across instances
// using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must run on the same DB
// handle that performs the posting writes.
type MySQLPostingLocker struct {
	DB *gorm.DB
}

func (l *MySQLPostingLocker) Acquire(ctx context.Context, companyId string) (func(), error) {
	lockName := fmt.Sprintf("posting:%s", companyId)
	var ok int
	if err := l.DB.WithContext(ctx).Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return nil, err
	}
	if ok != 1 {
		return nil, fmt.Errorf("could not acquire posting lock for company_id=%s", companyId)
	}
	release := func() {
		var _ok int
		_ = l.DB.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
	}
	return release, nil
}
