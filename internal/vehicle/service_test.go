package vehicle

import (
	"context"
	"testing"
	"time"

	"github.com/automercado/automercado/internal/common/apperr"
	"github.com/automercado/automercado/internal/user"
)

func TestCreateVehicle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	v, err := svc.Create(context.Background(), validInput(), seller.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.ID == 0 {
		t.Fatalf("expected id assigned")
	}
	if v.Status != StatusAvailable || !v.Active || v.Views != 0 {
		t.Fatalf("unexpected defaults: status=%s active=%v views=%d", v.Status, v.Active, v.Views)
	}

	var reloaded user.User
	if err := db.First(&reloaded, seller.ID).Error; err != nil {
		t.Fatalf("reload seller: %v", err)
	}
	if reloaded.VehiclesPublished != 1 {
		t.Fatalf("expected published counter 1, got %d", reloaded.VehiclesPublished)
	}
}

func TestCreateValidationDoesNotPersist(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	in := validInput()
	in.Year = 1800
	_, err := svc.Create(context.Background(), in, seller.ID)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	db.Model(&Vehicle{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no vehicles persisted, got %d", count)
	}
	var reloaded user.User
	db.First(&reloaded, seller.ID)
	if reloaded.VehiclesPublished != 0 {
		t.Fatalf("expected counter untouched, got %d", reloaded.VehiclesPublished)
	}
}

func TestCreateRequiresPublishCapability(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, false)

	_, err := svc.Create(context.Background(), validInput(), seller.ID)
	if !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}

	_, err = svc.Create(context.Background(), validInput(), 9999)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown seller, got %v", err)
	}
}

func TestGetIncrementsViews(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)
	v := seedVehicle(t, db, Vehicle{SellerID: seller.ID})

	got, err := svc.Get(context.Background(), v.ID, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected views 1, got %d", got.Views)
	}

	got, err = svc.Get(context.Background(), v.ID, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected views unchanged, got %d", got.Views)
	}

	// 下架后的车辆即使请求计数也不再累加
	if err := svc.SoftDelete(context.Background(), v.ID, seller.ID, "taken down"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err = svc.Get(context.Background(), v.ID, true)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got.Views != 1 {
		t.Fatalf("expected views frozen after deactivation, got %d", got.Views)
	}

	_, err = svc.Get(context.Background(), 9999, false)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePermissionsAndAllowList(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	owner := seedSeller(t, db, "owner@example.com", user.RoleIndividual, true)
	other := seedSeller(t, db, "other@example.com", user.RoleIndividual, true)
	admin := seedSeller(t, db, "admin@example.com", user.RoleAdmin, true)
	v := seedVehicle(t, db, Vehicle{SellerID: owner.ID, Price: 10000})

	newPrice := 12000.0
	_, err := svc.Update(context.Background(), v.ID, UpdateInput{Price: &newPrice}, other.ID)
	if !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("expected permission error for stranger, got %v", err)
	}

	desc := "  km 0, single owner  "
	got, err := svc.Update(context.Background(), v.ID, UpdateInput{Price: &newPrice, Description: &desc}, owner.ID)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if got.Price != 12000 || got.Description != "km 0, single owner" {
		t.Fatalf("update not applied: price=%v desc=%q", got.Price, got.Description)
	}

	adminPrice := 11000.0
	if _, err := svc.Update(context.Background(), v.ID, UpdateInput{Price: &adminPrice}, admin.ID); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	bad := -3.0
	_, err = svc.Update(context.Background(), v.ID, UpdateInput{Price: &bad}, owner.ID)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	owner := seedSeller(t, db, "owner@example.com", user.RoleIndividual, true)
	stranger := seedSeller(t, db, "other@example.com", user.RoleIndividual, true)
	v := seedVehicle(t, db, Vehicle{SellerID: owner.ID})

	if err := svc.SoftDelete(context.Background(), v.ID, stranger.ID, "nope"); !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}

	if err := svc.SoftDelete(context.Background(), v.ID, owner.ID, "sold elsewhere"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	got, err := svc.Get(context.Background(), v.ID, false)
	if err != nil {
		t.Fatalf("expected row to survive soft delete, got %v", err)
	}
	if got.Active {
		t.Fatalf("expected active=false")
	}
	if got.InactiveReason == nil || *got.InactiveReason != "sold elsewhere" {
		t.Fatalf("expected reason recorded, got %v", got.InactiveReason)
	}
}

func TestInactiveVehiclePersistsAsWritten(t *testing.T) {
	db := newTestDB(t)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	// Active=false 与非默认状态必须原样落库，不能被列默认值改写
	v := Vehicle{
		Brand:      "Toyota",
		Model:      "Corolla",
		Year:       2020,
		EngineType: EngineGasoline,
		BodyType:   BodySedan,
		Price:      15000,
		City:       "Madrid",
		Province:   "Madrid",
		Status:     StatusSold,
		Active:     false,
		SellerID:   seller.ID,
	}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var got Vehicle
	if err := db.First(&got, v.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Active {
		t.Fatalf("expected active=false to be stored")
	}
	if got.Status != StatusSold {
		t.Fatalf("expected status sold to be stored, got %s", got.Status)
	}
}

func TestSearchPagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)
	for i := 0; i < 5; i++ {
		seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	}

	page, err := svc.Search(context.Background(), SearchInput{Limit: 2, Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 {
		t.Fatalf("expected total=5 pages=3, got total=%d pages=%d", page.Total, page.TotalPages)
	}
	if !page.HasNext || page.HasPrev {
		t.Fatalf("page 1: expected has_next && !has_prev")
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}

	last, err := svc.Search(context.Background(), SearchInput{Limit: 2, Page: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if last.HasNext || !last.HasPrev {
		t.Fatalf("page 3: expected !has_next && has_prev")
	}
	if len(last.Items) != 1 {
		t.Fatalf("expected 1 item on last page, got %d", len(last.Items))
	}
}

func TestSearchBaseFiltersAndOverride(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	sold := seedVehicle(t, db, Vehicle{SellerID: seller.ID, Status: StatusSold})
	inactive := seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	db.Model(inactive).Update("active", false)

	page, err := svc.Search(context.Background(), SearchInput{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("base filters should hide sold+inactive, got total=%d", page.Total)
	}

	// 调用方条件可以覆盖基础条件
	soldPage, err := svc.Search(context.Background(), SearchInput{
		Filters: Filters{Eq("status", StatusSold)},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if soldPage.Total != 1 || soldPage.Items[0].ID != sold.ID {
		t.Fatalf("expected sold vehicle visible with override, got total=%d", soldPage.Total)
	}

	inactivePage, err := svc.Search(context.Background(), SearchInput{
		Filters: Filters{Eq("active", false)},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if inactivePage.Total != 1 || inactivePage.Items[0].ID != inactive.ID {
		t.Fatalf("expected inactive vehicle visible with override, got total=%d", inactivePage.Total)
	}
}

func TestTextSearch(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "BMW", Model: "Serie 3"})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Audi", Model: "A4", Description: "bmw trade-in accepted"})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "BMW", Model: "X5", Status: StatusSold})

	got, err := svc.TextSearch(context.Background(), "bMw", 10)
	if err != nil {
		t.Fatalf("TextSearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches (brand + description, sold excluded), got %d", len(got))
	}

	if _, err := svc.TextSearch(context.Background(), "  ", 10); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
}

func TestSimilarTwoPhase(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	subject := seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Toyota", BodyType: BodySedan, Price: 20000})
	sameBrand := seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Toyota", BodyType: BodySUV, Price: 22000})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Toyota", BodyType: BodySedan, Price: 50000}) // 价格窗口外
	otherBrand := seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Honda", BodyType: BodySedan, Price: 19000})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Honda", BodyType: BodyPickup, Price: 19000}) // 车身类型不同

	got, err := svc.Similar(context.Background(), subject.ID, 4)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 similar vehicles, got %d", len(got))
	}
	for _, v := range got {
		if v.ID == subject.ID {
			t.Fatalf("subject must never be returned")
		}
		if v.Price < 16000 || v.Price > 24000 {
			t.Fatalf("price %v outside window", v.Price)
		}
	}
	// 一阶段结果排在前面，且品牌与主车一致
	if got[0].ID != sameBrand.ID || got[0].Brand != "Toyota" {
		t.Fatalf("expected same-brand match first, got %+v", got[0])
	}
	if got[1].ID != otherBrand.ID || got[1].Brand == "Toyota" {
		t.Fatalf("expected phase-2 match with different brand, got %+v", got[1])
	}

	// limit 足够小则不会进入二阶段
	one, err := svc.Similar(context.Background(), subject.ID, 1)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(one) != 1 || one[0].Brand != "Toyota" {
		t.Fatalf("expected only phase-1 result, got %+v", one)
	}
}

func TestMarkSold(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	owner := seedSeller(t, db, "owner@example.com", user.RoleIndividual, true)
	stranger := seedSeller(t, db, "other@example.com", user.RoleIndividual, true)
	v := seedVehicle(t, db, Vehicle{SellerID: owner.ID})

	_, err := svc.MarkSold(context.Background(), v.ID, stranger.ID)
	if !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	var unchanged Vehicle
	db.First(&unchanged, v.ID)
	if unchanged.Status != StatusAvailable {
		t.Fatalf("unauthorized mark-sold must not change status, got %s", unchanged.Status)
	}

	sold, err := svc.MarkSold(context.Background(), v.ID, owner.ID)
	if err != nil {
		t.Fatalf("MarkSold: %v", err)
	}
	if sold.Status != StatusSold {
		t.Fatalf("expected status sold, got %s", sold.Status)
	}
	var reloaded user.User
	db.First(&reloaded, owner.ID)
	if reloaded.VehiclesSold != 1 {
		t.Fatalf("expected sold counter 1, got %d", reloaded.VehiclesSold)
	}

	// sold 为终态，重复售出报错且计数不再增加
	if _, err := svc.MarkSold(context.Background(), v.ID, owner.ID); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error on double sell, got %v", err)
	}
	db.First(&reloaded, owner.ID)
	if reloaded.VehiclesSold != 1 {
		t.Fatalf("expected sold counter still 1, got %d", reloaded.VehiclesSold)
	}
}

func TestReserveAndRelease(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	owner := seedSeller(t, db, "owner@example.com", user.RoleIndividual, true)
	v := seedVehicle(t, db, Vehicle{SellerID: owner.ID})

	got, err := svc.Reserve(context.Background(), v.ID, owner.ID)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got.Status != StatusReserved {
		t.Fatalf("expected reserved, got %s", got.Status)
	}

	got, err = svc.Release(context.Background(), v.ID, owner.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got.Status != StatusAvailable {
		t.Fatalf("expected available, got %s", got.Status)
	}
}

func TestFeatureOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	owner := seedSeller(t, db, "owner@example.com", user.RoleIndividual, true)
	admin := seedSeller(t, db, "admin@example.com", user.RoleAdmin, true)
	v := seedVehicle(t, db, Vehicle{SellerID: owner.ID})

	// 管理员可以改车，但不能替卖家置顶
	if _, err := svc.Feature(context.Background(), v.ID, admin.ID); !apperr.IsKind(err, apperr.KindPermission) {
		t.Fatalf("expected permission error for admin, got %v", err)
	}

	got, err := svc.Feature(context.Background(), v.ID, owner.ID)
	if err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if !got.Featured {
		t.Fatalf("expected featured=true")
	}

	page, err := svc.Featured(context.Background(), 10)
	if err != nil {
		t.Fatalf("Featured: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != v.ID {
		t.Fatalf("expected featured vehicle listed, got total=%d", page.Total)
	}
}

func TestRecentAndMostViewed(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	old := seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	db.Model(old).UpdateColumn("created_at", time.Now().AddDate(0, 0, -30))
	fresh := seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	db.Model(fresh).UpdateColumn("views", 7)

	recent, err := svc.Recent(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent.Total != 1 || recent.Items[0].ID != fresh.ID {
		t.Fatalf("expected only fresh vehicle, got total=%d", recent.Total)
	}

	viewed, err := svc.MostViewed(context.Background(), 10)
	if err != nil {
		t.Fatalf("MostViewed: %v", err)
	}
	if len(viewed.Items) == 0 || viewed.Items[0].ID != fresh.ID {
		t.Fatalf("expected most viewed first")
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Toyota", EngineType: EngineGasoline, Price: 10000})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Toyota", EngineType: EngineGasoline, Price: 20001})
	seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "BMW", EngineType: EngineDiesel, Price: 30000, Status: StatusSold})
	hidden := seedVehicle(t, db, Vehicle{SellerID: seller.ID, Brand: "Seat", EngineType: EngineElectric, Price: 40000})
	db.Model(hidden).Update("active", false)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 {
		t.Fatalf("expected total 4 (incl. inactive), got %d", stats.Total)
	}
	if stats.ByStatus[StatusAvailable] != 2 || stats.ByStatus[StatusSold] != 1 || stats.ByStatus[StatusReserved] != 0 {
		t.Fatalf("unexpected by-status counts: %+v", stats.ByStatus)
	}
	if len(stats.TopBrands) == 0 || stats.TopBrands[0].Brand != "Toyota" || stats.TopBrands[0].Count != 2 {
		t.Fatalf("unexpected top brands: %+v", stats.TopBrands)
	}
	if got := stats.AvgPriceByEngine[EngineGasoline]; got != 15000.5 {
		t.Fatalf("expected gasoline avg 15000.5, got %v", got)
	}
	if got := stats.AvgPriceByEngine[EngineHybrid]; got != 0 {
		t.Fatalf("expected 0 for empty engine group, got %v", got)
	}
}

func TestSellerVehicles(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)
	other := seedSeller(t, db, "other@example.com", user.RoleIndividual, true)

	v1 := seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	db.Model(v1).Update("active", false)
	seedVehicle(t, db, Vehicle{SellerID: seller.ID})
	seedVehicle(t, db, Vehicle{SellerID: other.ID})

	active, err := svc.SellerVehicles(context.Background(), seller.ID, false)
	if err != nil {
		t.Fatalf("SellerVehicles: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active vehicle, got %d", len(active))
	}

	all, err := svc.SellerVehicles(context.Background(), seller.ID, true)
	if err != nil {
		t.Fatalf("SellerVehicles: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 vehicles incl. inactive, got %d", len(all))
	}
}

func TestQuickCreateAndSimpleSearch(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	seller := seedSeller(t, db, "seller@example.com", user.RoleIndividual, true)

	v, err := QuickCreate(context.Background(), svc, "Toyota", "Corolla", 2020, 15000, seller.ID)
	if err != nil {
		t.Fatalf("QuickCreate: %v", err)
	}
	if v.EngineType != EngineGasoline || v.BodyType != BodySedan || v.City != "Madrid" {
		t.Fatalf("unexpected defaults: %+v", v)
	}

	got, err := SimpleSearch(context.Background(), svc, "Toyota", 20000)
	if err != nil {
		t.Fatalf("SimpleSearch: %v", err)
	}
	if len(got) != 1 || got[0].ID != v.ID {
		t.Fatalf("expected quick-created vehicle found, got %d", len(got))
	}

	none, err := SimpleSearch(context.Background(), svc, "Toyota", 10000)
	if err != nil {
		t.Fatalf("SimpleSearch: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches over price cap, got %d", len(none))
	}
}
