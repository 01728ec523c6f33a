// Package money 提供了基于 shopspring/decimal 的高精度金额计算与处理能力。
// 账户余额与商品、任务的价值均使用十进制精确运算，不做币种舍入。
package money

import (
	"github.com/shopspring/decimal"
)

// Money 封装了高精度的金额处理。
type Money struct {
	value decimal.Decimal
}

// Zero 零值金额。
func Zero() Money {
	return Money{value: decimal.Zero}
}

// New 从 float64 创建 Money。线路格式中的数值即 JSON number。
func New(val float64) Money {
	return Money{value: decimal.NewFromFloat(val)}
}

// NewFromString 从字符串解析金额。
func NewFromString(val string) (Money, error) {
	d, err := decimal.NewFromString(val)
	if err != nil {
		return Money{}, err
	}
	return Money{value: d}, nil
}

// ToFloat 转换为 float64。
func (m Money) ToFloat() float64 {
	f, _ := m.value.Float64()
	return f
}

// String 返回格式化后的字符串 (默认 2 位小数)。
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// Add 加法。
func (m Money) Add(other Money) Money {
	return Money{value: m.value.Add(other.value)}
}

// Sub 减法。
func (m Money) Sub(other Money) Money {
	return Money{value: m.value.Sub(other.value)}
}

// Equal 判断两个金额是否相等。
func (m Money) Equal(other Money) bool {
	return m.value.Equal(other.value)
}

// IsNegative 金额是否为负。
func (m Money) IsNegative() bool {
	return m.value.IsNegative()
}

// IsZero 金额是否为零。
func (m Money) IsZero() bool {
	return m.value.IsZero()
}

// MarshalJSON 实现 json.Marshaler。
func (m Money) MarshalJSON() ([]byte, error) {
	return m.value.MarshalJSON()
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.value.UnmarshalJSON(data)
}
