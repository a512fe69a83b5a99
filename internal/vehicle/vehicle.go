package vehicle

import (
	"time"
)

// EngineType 发动机类型枚举（持久化为字符串）。
type EngineType string

const (
	EngineGasoline     EngineType = "gasoline"
	EngineDiesel       EngineType = "diesel"
	EngineHybrid       EngineType = "hybrid"
	EngineElectric     EngineType = "electric"
	EnginePlugInHybrid EngineType = "plug_in_hybrid"
)

// EngineTypes 全部合法发动机类型（统计时也按此枚举补零）。
var EngineTypes = []EngineType{
	EngineGasoline,
	EngineDiesel,
	EngineHybrid,
	EngineElectric,
	EnginePlugInHybrid,
}

func ValidEngineType(t EngineType) bool {
	for _, e := range EngineTypes {
		if e == t {
			return true
		}
	}
	return false
}

// BodyType 车身类型枚举。
type BodyType string

const (
	BodySedan       BodyType = "sedan"
	BodySUV         BodyType = "suv"
	BodyHatchback   BodyType = "hatchback"
	BodyCoupe       BodyType = "coupe"
	BodyPickup      BodyType = "pickup"
	BodySedanLuxury BodyType = "sedan_luxury"
	BodyMinivan     BodyType = "minivan"
	BodyVan         BodyType = "van"
)

var bodyTypes = map[BodyType]struct{}{
	BodySedan:       {},
	BodySUV:         {},
	BodyHatchback:   {},
	BodyCoupe:       {},
	BodyPickup:      {},
	BodySedanLuxury: {},
	BodyMinivan:     {},
	BodyVan:         {},
}

func ValidBodyType(t BodyType) bool {
	_, ok := bodyTypes[t]
	return ok
}

// Status 车辆生命周期状态。
type Status string

const (
	StatusAvailable Status = "available" // 在售
	StatusReserved  Status = "reserved"  // 已预订
	StatusSold      Status = "sold"      // 已售出（终态）
)

// Vehicle 是 vehicles 表的 GORM 模型。
type Vehicle struct {
	ID    uint   `gorm:"primaryKey"`
	Brand string `gorm:"size:50;not null;index"`
	Model string `gorm:"size:100;not null"`
	Year  int    `gorm:"not null"`

	EngineType EngineType `gorm:"type:varchar(20);not null;index"`
	BodyType   BodyType   `gorm:"type:varchar(20);not null;index"`

	Price           float64 `gorm:"not null"`
	NegotiablePrice bool    `gorm:"not null"`
	Mileage         int     `gorm:"not null;default:0"`

	Description   string `gorm:"size:1000"`
	Extras        string `gorm:"size:500"`
	ExteriorColor string `gorm:"size:50"`
	InteriorColor string `gorm:"size:50"`

	// 位置
	City     string `gorm:"size:100;not null"`
	Province string `gorm:"size:100;not null"`

	// 状态与运营。Status / Active 不加列默认值：带 default 标签的零值
	// 会被 GORM 从 INSERT 中省略，写入 false / 空状态时会被默认值改写
	Status   Status `gorm:"type:varchar(16);not null;index"`
	Active   bool   `gorm:"not null;index"`
	Featured bool   `gorm:"not null;default:false"`
	Views    int    `gorm:"not null;default:0"`

	// 附加选项
	FinancingAvailable bool `gorm:"not null;default:false"`
	AcceptsTradeIn     bool `gorm:"not null;default:false"`

	// 卖家
	SellerID uint `gorm:"index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// 下架原因（软删除时记录，行永不物理删除）
	InactiveReason *string `gorm:"size:255"`
}
