package vehicle

import (
	"fmt"
	"time"
)

// AllowTransition 定义车辆状态机的允许流转关系。
// reserved 可以退回 available（预订取消）；sold 为终态。
var AllowTransition = map[Status][]Status{
	StatusAvailable: {StatusReserved, StatusSold},
	StatusReserved:  {StatusAvailable, StatusSold},
	StatusSold:      {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
// 自环不在允许表内：重复售出、重复预订都视为非法流转。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对车辆应用状态变更，并刷新更新时间。
// 仅在 CanTransition 返回 true 时生效。
func ApplyTransition(v *Vehicle, to Status, now time.Time) error {
	if v == nil {
		return fmt.Errorf("vehicle is nil")
	}
	from := v.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid vehicle status transition: %s -> %s", from, to)
	}

	v.Status = to
	v.UpdatedAt = now
	return nil
}
