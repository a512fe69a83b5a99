package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/automercado/automercado/internal/common/apperr"
	"github.com/automercado/automercado/internal/common/logger"
	"github.com/automercado/automercado/internal/user"
	"gorm.io/gorm"
)

const (
	defaultPageSize     = 20
	sellerVehiclesLimit = 500 // 卖家车辆列表的上限
	similarPriceWindow  = 0.2 // 相似车辆的价格窗口：±20%
	topBrandsLimit      = 5
)

// Service 封装车辆领域的核心用例（不依赖传输层），便于复用和测试。
// 涉及“车辆 + 卖家计数”的复合写入在同一事务内完成。
type Service struct {
	db   *gorm.DB
	repo *Repo
	log  logger.Logger
}

func NewService(db *gorm.DB, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: db, repo: NewRepo(db), log: log}
}

// CreateInput 创建车辆的入参。
type CreateInput struct {
	Brand string
	Model string
	Year  int

	EngineType EngineType
	BodyType   BodyType

	Price           float64
	NegotiablePrice bool
	Mileage         int

	Description   string
	Extras        string
	ExteriorColor string
	InteriorColor string

	City     string
	Province string

	FinancingAvailable bool
	AcceptsTradeIn     bool
}

// UpdateInput 更新车辆的入参；只有白名单字段可以修改，nil 表示不变。
type UpdateInput struct {
	Price           *float64
	Mileage         *int
	Description     *string
	Extras          *string
	ExteriorColor   *string
	InteriorColor   *string
	City            *string
	Province        *string
	NegotiablePrice *bool

	FinancingAvailable *bool
	AcceptsTradeIn     *bool
}

// SearchInput 搜索入参。
type SearchInput struct {
	Filters Filters
	Limit   int
	Page    int
	OrderBy string // 空串使用默认排序 -created_at
}

// Page 分页结果信封。
type Page struct {
	Items      []Vehicle
	Total      int64
	Page       int
	TotalPages int
	HasNext    bool
	HasPrev    bool
	Limit      int
}

// Stats 市场统计汇总。
type Stats struct {
	Total            int64
	ByStatus         map[Status]int64
	TopBrands        []BrandCount
	AvgPriceByEngine map[EngineType]float64
}

// Create 校验入参、检查卖家发布权限后创建车辆。
// 车辆写入与卖家发布计数在同一事务内，任一失败整体回滚。
func (s *Service) Create(ctx context.Context, in CreateInput, sellerID uint) (*Vehicle, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if err := ValidateCreateInput(in, time.Now()); err != nil {
		return nil, err
	}

	var created *Vehicle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := user.NewRepo(tx)
		seller, err := users.FindByID(ctx, sellerID)
		if err != nil {
			return err
		}
		if !seller.Active || !seller.CanPublish {
			return apperr.Permissionf("seller %d is not allowed to publish", sellerID)
		}

		v := &Vehicle{
			Brand:              strings.TrimSpace(in.Brand),
			Model:              strings.TrimSpace(in.Model),
			Year:               in.Year,
			EngineType:         in.EngineType,
			BodyType:           in.BodyType,
			Price:              in.Price,
			NegotiablePrice:    in.NegotiablePrice,
			Mileage:            in.Mileage,
			Description:        strings.TrimSpace(in.Description),
			Extras:             strings.TrimSpace(in.Extras),
			ExteriorColor:      strings.TrimSpace(in.ExteriorColor),
			InteriorColor:      strings.TrimSpace(in.InteriorColor),
			City:               strings.TrimSpace(in.City),
			Province:           strings.TrimSpace(in.Province),
			Status:             StatusAvailable,
			Active:             true,
			Views:              0,
			FinancingAvailable: in.FinancingAvailable,
			AcceptsTradeIn:     in.AcceptsTradeIn,
			SellerID:           sellerID,
		}
		if err := NewRepo(tx).Create(ctx, v); err != nil {
			return err
		}
		if err := users.IncrementPublished(ctx, sellerID); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"vehicle_id": created.ID,
		"seller_id":  sellerID,
	}).Info("vehicle created")
	return created, nil
}

// Get 按 ID 查询；incrementViews 为 true 且车辆处于激活状态时浏览数 +1。
func (s *Service) Get(ctx context.Context, id uint, incrementViews bool) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if incrementViews && v.Active {
		if err := s.repo.IncrementViews(ctx, id); err != nil {
			return nil, err
		}
		v.Views++
	}
	return v, nil
}

// Update 修改白名单字段；操作者必须是归属卖家或管理员。
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, actorID uint) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, actor, err := s.loadForMutation(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !canModify(v, actor) {
		return nil, apperr.Permissionf("actor %d may not modify vehicle %d", actorID, id)
	}

	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, apperr.Validationf("price must be greater than 0")
		}
		v.Price = *in.Price
	}
	if in.Mileage != nil {
		if *in.Mileage < 0 {
			return nil, apperr.Validationf("mileage cannot be negative")
		}
		v.Mileage = *in.Mileage
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	if in.Extras != nil {
		v.Extras = strings.TrimSpace(*in.Extras)
	}
	if in.ExteriorColor != nil {
		v.ExteriorColor = strings.TrimSpace(*in.ExteriorColor)
	}
	if in.InteriorColor != nil {
		v.InteriorColor = strings.TrimSpace(*in.InteriorColor)
	}
	if in.City != nil {
		v.City = strings.TrimSpace(*in.City)
	}
	if in.Province != nil {
		v.Province = strings.TrimSpace(*in.Province)
	}
	if in.NegotiablePrice != nil {
		v.NegotiablePrice = *in.NegotiablePrice
	}
	if in.FinancingAvailable != nil {
		v.FinancingAvailable = *in.FinancingAvailable
	}
	if in.AcceptsTradeIn != nil {
		v.AcceptsTradeIn = *in.AcceptsTradeIn
	}
	v.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SoftDelete 下架车辆：只清 active 标记并记录原因，行永不删除。
func (s *Service) SoftDelete(ctx context.Context, id uint, actorID uint, reason string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	v, actor, err := s.loadForMutation(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !canModify(v, actor) {
		return apperr.Permissionf("actor %d may not delete vehicle %d", actorID, id)
	}

	reason = strings.TrimSpace(reason)
	v.Active = false
	v.InactiveReason = &reason
	v.UpdatedAt = time.Now()
	return s.repo.Save(ctx, v)
}

// Search 组合基础条件（激活 + 在售）与调用方条件做分页查询。
// 调用方条件可以覆盖基础条件。
func (s *Service) Search(ctx context.Context, in SearchInput) (*Page, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	orderBy := strings.TrimSpace(in.OrderBy)
	if orderBy == "" {
		orderBy = "-created_at"
	}

	fs := MergeFilters(Filters{
		Eq("active", true),
		Eq("status", StatusAvailable),
	}, in.Filters)

	total, err := s.repo.Count(ctx, fs)
	if err != nil {
		return nil, err
	}
	offset := (page - 1) * limit
	items, err := s.repo.Search(ctx, fs, limit, offset, orderBy)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
		Limit:      limit,
	}, nil
}

// TextSearch 自由文本搜索（brand / model / description 子串匹配）。
func (s *Service) TextSearch(ctx context.Context, query string, limit int) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validationf("search query is required")
	}
	return s.repo.TextSearch(ctx, query, limit)
}

// Featured 置顶车辆列表。
func (s *Service) Featured(ctx context.Context, limit int) (*Page, error) {
	return s.Search(ctx, SearchInput{
		Filters: Filters{Eq("featured", true)},
		Limit:   limit,
	})
}

// Recent 最近 days 天内发布的车辆。
func (s *Service) Recent(ctx context.Context, days, limit int) (*Page, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.Search(ctx, SearchInput{
		Filters: Filters{GTE("created_at", since)},
		Limit:   limit,
	})
}

// MostViewed 浏览数最多的车辆。
func (s *Service) MostViewed(ctx context.Context, limit int) (*Page, error) {
	return s.Search(ctx, SearchInput{
		Limit:   limit,
		OrderBy: "-views",
	})
}

// Similar 两阶段相似车辆检索：
// 一阶段取同品牌、价格 ±20% 的车；数量不足 limit 时，
// 二阶段按同车身类型、不同品牌补足，直接追加不重新排序。
func (s *Service) Similar(ctx context.Context, id uint, limit int) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lo := subject.Price * (1 - similarPriceWindow)
	hi := subject.Price * (1 + similarPriceWindow)

	out, err := s.repo.SimilarByBrand(ctx, subject, lo, hi, limit)
	if err != nil {
		return nil, err
	}
	if len(out) < limit {
		more, err := s.repo.SimilarByBody(ctx, subject, lo, hi, limit-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

// MarkSold 把车辆置为已售出；卖家售出计数在同一事务内 +1。
func (s *Service) MarkSold(ctx context.Context, id uint, actorID uint) (*Vehicle, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	var sold *Vehicle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepo(tx)
		users := user.NewRepo(tx)

		v, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		actor, err := users.FindByID(ctx, actorID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.Permissionf("actor %d may not modify vehicle %d", actorID, id)
			}
			return err
		}
		if !canModify(v, actor) {
			return apperr.Permissionf("actor %d may not sell vehicle %d", actorID, id)
		}

		if err := ApplyTransition(v, StatusSold, time.Now()); err != nil {
			return apperr.Wrap(apperr.KindValidation, "mark sold", err)
		}
		if err := repo.Save(ctx, v); err != nil {
			return err
		}
		if err := users.IncrementSold(ctx, v.SellerID); err != nil {
			return err
		}
		sold = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("vehicle_id", sold.ID).Info("vehicle sold")
	return sold, nil
}

// Reserve 预订车辆（available -> reserved）。
func (s *Service) Reserve(ctx context.Context, id uint, actorID uint) (*Vehicle, error) {
	return s.transition(ctx, id, actorID, StatusReserved)
}

// Release 取消预订（reserved -> available）。
func (s *Service) Release(ctx context.Context, id uint, actorID uint) (*Vehicle, error) {
	return s.transition(ctx, id, actorID, StatusAvailable)
}

func (s *Service) transition(ctx context.Context, id, actorID uint, to Status) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, actor, err := s.loadForMutation(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !canModify(v, actor) {
		return nil, apperr.Permissionf("actor %d may not modify vehicle %d", actorID, id)
	}
	if err := ApplyTransition(v, to, time.Now()); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "status transition", err)
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Feature 置顶车辆。只有归属卖家本人可以操作，管理员也不行。
func (s *Service) Feature(ctx context.Context, id uint, actorID uint) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, actor, err := s.loadForMutation(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !canFeature(v, actor) {
		return nil, apperr.Permissionf("only the owning seller may feature vehicle %d", id)
	}
	v.Featured = true
	v.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Stats 市场统计：总量、按状态、Top 品牌、按发动机类型的平均价。
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	total, err := s.repo.Total(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	topBrands, err := s.repo.TopBrands(ctx, topBrandsLimit)
	if err != nil {
		return nil, err
	}
	avgByEngine, err := s.repo.AvgPriceByEngine(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Total:            total,
		ByStatus:         byStatus,
		TopBrands:        topBrands,
		AvgPriceByEngine: avgByEngine,
	}, nil
}

// SellerVehicles 某卖家的全部车辆，按创建时间倒序，含上限保护。
func (s *Service) SellerVehicles(ctx context.Context, sellerID uint, includeInactive bool) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	fs := Filters{Eq("seller_id", sellerID)}
	if !includeInactive {
		fs = append(fs, Eq("active", true))
	}
	return s.repo.Search(ctx, fs, sellerVehiclesLimit, 0, "-created_at")
}

// loadForMutation 加载车辆与操作者；操作者不存在按无权限处理。
func (s *Service) loadForMutation(ctx context.Context, id, actorID uint) (*Vehicle, *user.User, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	actor, err := user.NewRepo(s.db).FindByID(ctx, actorID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, nil, apperr.Permissionf("actor %d may not modify vehicle %d", actorID, id)
		}
		return nil, nil, err
	}
	return v, actor, nil
}

// canModify 更新 / 下架 / 状态流转：归属卖家或管理员。
func canModify(v *Vehicle, actor *user.User) bool {
	if v == nil || actor == nil {
		return false
	}
	return actor.IsAdmin() || v.SellerID == actor.ID
}

// canFeature 置顶：仅归属卖家本人。
func canFeature(v *Vehicle, actor *user.User) bool {
	if v == nil || actor == nil {
		return false
	}
	return v.SellerID == actor.ID
}
