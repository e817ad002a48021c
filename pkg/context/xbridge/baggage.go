package xbridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xprop/pkg/context/xcarrier"
	"github.com/omeyang/xprop/pkg/context/xctx"
)

// ErrInvalidBaggage 视图条目无法编码为 baggage 成员。
var ErrInvalidBaggage = errors.New("xbridge: invalid baggage member")

var stringType = reflect.TypeFor[string]()

// InjectBaggage 将当前视图中的字符串条目编码为 W3C baggage 写入 carrier。
//
// ctx 中已有的 baggage 成员保留，同名成员以视图为准。
// 名称或值不合法的条目被跳过，其余成员照常写入；跳过的条目汇总为
// 返回的错误，每个都满足 errors.Is(err, ErrInvalidBaggage)。
func InjectBaggage(ctx context.Context, carrier propagation.TextMapCarrier) error {
	if ctx == nil || carrier == nil {
		return nil
	}
	bag := baggage.FromContext(ctx)
	var errs []error
	for name, value := range View(ctx).Strings() {
		if !isBaggageToken(name) {
			errs = append(errs, fmt.Errorf("%w %q: name is not a token", ErrInvalidBaggage, name))
			continue
		}
		m, err := baggage.NewMemberRaw(name, value)
		if err == nil {
			bag, err = bag.SetMember(m)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrInvalidBaggage, name, err))
		}
	}
	propagation.Baggage{}.Inject(baggage.ContextWithBaggage(ctx, bag), carrier)
	return errors.Join(errs...)
}

// isBaggageToken 按 RFC 7230 token 校验成员名。
// NewMemberRaw 不校验名称，非法名称会生成对端无法解析的 header。
func isBaggageToken(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

// ExtractBaggage 从 carrier 解析 W3C baggage，并通过 Install 安装到显式通道。
//
// 只提取已注册为 string 类型的键；其余成员忽略，避免外部输入扩大键注册表。
// 没有可提取的成员时原样返回 ctx。
func ExtractBaggage(ctx context.Context, carrier propagation.TextMapCarrier) (context.Context, error) {
	if ctx == nil {
		return nil, xctx.ErrNilContext
	}
	if carrier == nil {
		return ctx, nil
	}
	bag := baggage.FromContext(propagation.Baggage{}.Extract(context.Background(), carrier))

	inbound := xcarrier.Empty()
	for _, m := range bag.Members() {
		if t, ok := xcarrier.TypeOf(m.Key()); !ok || t != stringType {
			continue
		}
		key, err := xcarrier.NewKey[string](m.Key())
		if err != nil {
			continue
		}
		inbound = xcarrier.With(inbound, key, m.Value())
	}
	if inbound.IsEmpty() {
		return ctx, nil
	}
	return Install(ctx, inbound)
}
