package match

import "errors"

var (
	ErrInvalidParam   = errors.New("the param is invalid")
	ErrDuplicateOrder = errors.New("order id already resides in the book")
	ErrOrderNotFound  = errors.New("order does not rest in the book")
	ErrInvalidState   = errors.New("order state does not allow the operation")
)
