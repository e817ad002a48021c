package xid

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/sonyflake/v2"
)

var (
	// ErrInvalidID 不是合法的 base36 正整数。
	ErrInvalidID = errors.New("xid: invalid id")
	// ErrInvalidConfig 创建 Sonyflake 失败，例如机器号校验不通过。
	ErrInvalidConfig = errors.New("xid: invalid config")
	// ErrOverTimeLimit 时间分量溢出，不可恢复。
	ErrOverTimeLimit = errors.New("xid: time component overflow")
	// ErrNilGenerator 未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator")
)

// Sonyflake v2 位布局：39 位时间 + 8 位序列 + 16 位机器号。
const (
	machineBits  = 16
	sequenceBits = 8
	machineMask  = (1 << machineBits) - 1
	sequenceMask = (1 << sequenceBits) - 1
	timeUnit     = 10 * time.Millisecond
)

// Option 生成器选项。
type Option func(*options)

type options struct {
	machineID func() (uint16, error)
	startTime time.Time
}

// WithMachineID 自定义机器号来源，默认 DefaultMachineID。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) { o.machineID = fn }
}

// WithStartTime 设置时间分量的起点，默认使用 Sonyflake 的内置起点。
func WithStartTime(t time.Time) Option {
	return func(o *options) { o.startTime = t }
}

// Generator 并发安全的标识生成器。
type Generator struct {
	sf *sonyflake.Sonyflake
}

// NewGenerator 创建生成器。
func NewGenerator(opts ...Option) (*Generator, error) {
	o := options{machineID: DefaultMachineID}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	settings := sonyflake.Settings{StartTime: o.startTime}
	if o.machineID != nil {
		machineID := o.machineID
		settings.MachineID = func() (int, error) {
			id, err := machineID()
			return int(id), err
		}
	}
	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{sf: sf}, nil
}

// New 生成整数标识。
func (g *Generator) New() (int64, error) {
	if g == nil || g.sf == nil {
		return 0, ErrNilGenerator
	}
	id, err := g.sf.NextID()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return id, nil
}

// NewString 生成 base36 编码的标识。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

// Parse 解析 NewString 的输出，大小写不敏感。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return id, nil
}

// Components 标识的组成部分。Elapsed 为自起点经过的时长。
type Components struct {
	ID       int64
	Elapsed  time.Duration
	Sequence int64
	Machine  uint16
}

// Decompose 按固定位布局分解标识。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Elapsed:  time.Duration(id>>(machineBits+sequenceBits)) * timeUnit,
		Sequence: (id >> machineBits) & sequenceMask,
		Machine:  uint16(id & machineMask),
	}, nil
}
