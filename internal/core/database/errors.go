package database

import (
	stderrors "errors"

	errors "github.com/frahmantamala/expense-approval/internal"
	"gorm.io/gorm"
)

// Wrap turns a driver error into STORE_UNAVAILABLE. AppErrors pass through.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewStoreUnavailableError(message, err)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate needs gorm.Config.TranslateError.
func IsDuplicate(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey)
}
