package api

import (
	"context"

	"hotelsync/pkg/authtoken"
)

type ctxKey string

const ctxKeyOperator ctxKey = "operator"

func WithOperator(ctx context.Context, op *authtoken.Operator) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, op)
}

func OperatorFromContext(ctx context.Context) *authtoken.Operator {
	v := ctx.Value(ctxKeyOperator)
	if v == nil {
		return nil
	}
	op, _ := v.(*authtoken.Operator)
	return op
}
