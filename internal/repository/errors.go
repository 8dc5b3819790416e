package repository

import (
	"errors"

	"fulfillment/internal/model"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the domain sentinels. Duplicate keys only
// surface as gorm.ErrDuplicatedKey when the connection has TranslateError set.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return model.ErrAlreadyExists
	}
	return err
}
