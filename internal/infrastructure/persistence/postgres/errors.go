package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"

	"vidassist-api/internal/application/errclass"
	apperrors "vidassist-api/pkg/errors"
)

const uniqueViolation = "23505"

// translate 把驱动错误归一：连接类失败（SQLSTATE 08xxx、实例关停、连接数耗尽）标记为 StoreUnavailable
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if strings.HasPrefix(code, "08") || code == "57P01" || code == "57P03" || code == "53300" {
			return apperrors.Wrap(err, apperrors.KindStoreUnavailable, errclass.MsgStoreUnavailable)
		}
		return err
	}
	return errclass.FromStore(err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
