package vehicle

import (
	"strings"

	"gorm.io/gorm"
)

// Op 过滤操作符。
type Op string

const (
	OpEq      Op = "eq"
	OpLTE     Op = "lte"
	OpGTE     Op = "gte"
	OpBetween Op = "between"
)

// Cond 单个过滤条件；多个条件之间为 AND 关系。
type Cond struct {
	Field string
	Op    Op
	Value any
	Hi    any // between 上界
}

type Filters []Cond

func Eq(field string, v any) Cond  { return Cond{Field: field, Op: OpEq, Value: v} }
func LTE(field string, v any) Cond { return Cond{Field: field, Op: OpLTE, Value: v} }
func GTE(field string, v any) Cond { return Cond{Field: field, Op: OpGTE, Value: v} }
func Between(field string, lo, hi any) Cond {
	return Cond{Field: field, Op: OpBetween, Value: lo, Hi: hi}
}

// filterableFields 可过滤字段白名单：对外字段名 -> 列名。
// 不在白名单内的字段会被静默跳过（行为有单测固定）。
var filterableFields = map[string]string{
	"brand":               "brand",
	"model":               "model",
	"year":                "year",
	"price":               "price",
	"mileage":             "mileage",
	"engine_type":         "engine_type",
	"body_type":           "body_type",
	"city":                "city",
	"province":            "province",
	"status":              "status",
	"active":              "active",
	"featured":            "featured",
	"views":               "views",
	"seller_id":           "seller_id",
	"negotiable_price":    "negotiable_price",
	"financing_available": "financing_available",
	"accepts_trade_in":    "accepts_trade_in",
	"created_at":          "created_at",
}

// sortableFields 可排序字段白名单。
var sortableFields = map[string]string{
	"id":         "id",
	"brand":      "brand",
	"year":       "year",
	"price":      "price",
	"mileage":    "mileage",
	"views":      "views",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// applyFilters 将条件逐个应用到查询上；search 和 count 共用同一实现，
// 操作符语义（含 between）完全一致。
func applyFilters(q *gorm.DB, fs Filters) *gorm.DB {
	for _, c := range fs {
		col, ok := filterableFields[c.Field]
		if !ok {
			continue
		}
		switch c.Op {
		case OpLTE:
			q = q.Where(col+" <= ?", c.Value)
		case OpGTE:
			q = q.Where(col+" >= ?", c.Value)
		case OpBetween:
			q = q.Where(col+" BETWEEN ? AND ?", c.Value, c.Hi)
		default:
			q = q.Where(col+" = ?", c.Value)
		}
	}
	return q
}

// applyOrder 应用排序；字段名前缀 "-" 表示倒序，未知字段静默忽略。
func applyOrder(q *gorm.DB, orderBy string) *gorm.DB {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return q
	}
	desc := false
	if strings.HasPrefix(orderBy, "-") {
		desc = true
		orderBy = orderBy[1:]
	}
	col, ok := sortableFields[orderBy]
	if !ok {
		return q
	}
	if desc {
		return q.Order(col + " DESC")
	}
	return q.Order(col)
}

// MergeFilters 合并基础条件与调用方条件；调用方条件覆盖同名字段的基础条件
// （允许调用方显式查询非在售/非激活的车辆）。
func MergeFilters(base, extra Filters) Filters {
	if len(extra) == 0 {
		return base
	}
	overridden := make(map[string]bool, len(extra))
	for _, c := range extra {
		overridden[c.Field] = true
	}
	out := make(Filters, 0, len(base)+len(extra))
	for _, c := range base {
		if !overridden[c.Field] {
			out = append(out, c)
		}
	}
	return append(out, extra...)
}
