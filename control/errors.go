package control

import (
	"errors"
	"fmt"
	"strings"
)

// 对外暴露的错误类型，调用方用 errors.Is 判断
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("ticket not found")
	ErrAlreadyClosed  = errors.New("ticket already closed")
	ErrInternal       = errors.New("internal error")
)

// InvalidRequestError 缺少必填参数，Fields 为缺失的参数名
type InvalidRequestError struct {
	Fields []string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// requireFields 参数按 name, value 成对传入，空白值视为缺失
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &InvalidRequestError{Fields: missing}
	}
	return nil
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
