package xctx

import "context"

type contextFieldSetter struct {
	value string
	set   func(context.Context, string) (context.Context, error)
}

// applyOptionalFields 依次注入非空字段，空值跳过。
// 父 context 中已存在的字段在对应值为空时保留。
func applyOptionalFields(ctx context.Context, fields []contextFieldSetter) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	var err error
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if ctx, err = f.set(ctx, f.value); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}
