package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"equipcat/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedCategory(t *testing.T, st *Store, name, image string, at time.Time) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Image: image, CreatedAt: at, UpdatedAt: at}
	if err := st.CreateCategory(context.Background(), category); err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return category
}

func seedProduct(t *testing.T, st *Store, prodID, name, categoryID string, at time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ProdID:      prodID,
		Name:        name,
		CategoryID:  categoryID,
		Description: "desc " + name,
		Info:        []models.ProductInfoEntry{{Key: "Weight", Value: "2kg"}},
		Date:        at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := st.CreateProduct(context.Background(), product); err != nil {
		t.Fatalf("create product %s: %v", prodID, err)
	}
	return product
}

func TestCategoryCRUD(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	drills := seedCategory(t, st, "Drills", "uploads/categories/1-drills.png", now)
	seedCategory(t, st, "Saws", "", now.Add(time.Second))

	got, err := st.GetCategory(ctx, drills.ID)
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if got == nil || got.Name != "Drills" || got.Image != drills.Image {
		t.Fatalf("unexpected category: %#v", got)
	}

	if err := st.CreateCategory(ctx, &models.Category{Name: "drills", CreatedAt: now, UpdatedAt: now}); err == nil {
		t.Fatal("expected case-insensitive unique name violation")
	}

	all, err := st.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Saws" {
		t.Fatalf("expected newest first, got %#v", all)
	}

	found, err := st.SearchCategories(ctx, "RIL")
	if err != nil {
		t.Fatalf("search categories: %v", err)
	}
	if len(found) != 1 || found[0].ID != drills.ID {
		t.Fatalf("unexpected search result: %#v", found)
	}

	drills.Name = "Hammer Drills"
	drills.UpdatedAt = now.Add(time.Minute)
	if err := st.UpdateCategory(ctx, drills); err != nil {
		t.Fatalf("update category: %v", err)
	}

	deleted, err := st.DeleteCategory(ctx, drills.ID)
	if err != nil || !deleted {
		t.Fatalf("delete category: deleted=%v err=%v", deleted, err)
	}
	if got, err := st.GetCategory(ctx, drills.ID); err != nil || got != nil {
		t.Fatalf("expected category gone, got %#v err=%v", got, err)
	}
}

func TestProductFiltersAndImages(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	drills := seedCategory(t, st, "Drills", "", base)
	saws := seedCategory(t, st, "Saws", "", base)
	older := seedProduct(t, st, "D-1", "Cordless Drill", drills.ID, base)
	newer := seedProduct(t, st, "D-2", "Impact Drill", drills.ID, base.Add(time.Hour))
	seedProduct(t, st, "S-1", "Circular Saw", saws.ID, base.Add(2*time.Hour))

	byCategory, err := st.ListProducts(ctx, ProductFilter{CategoryName: "drills"})
	if err != nil {
		t.Fatalf("list by category name: %v", err)
	}
	if len(byCategory) != 2 || byCategory[0].ID != newer.ID || byCategory[1].ID != older.ID {
		t.Fatalf("expected date-desc drills, got %#v", byCategory)
	}
	if byCategory[0].CategoryName != "Drills" {
		t.Fatalf("expected joined category name, got %q", byCategory[0].CategoryName)
	}

	byName, err := st.ListProducts(ctx, ProductFilter{NameQuery: "saw"})
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if len(byName) != 1 || byName[0].ProdID != "S-1" {
		t.Fatalf("unexpected name filter result: %#v", byName)
	}

	latest, err := st.ListProducts(ctx, ProductFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list latest: %v", err)
	}
	if len(latest) != 1 || latest[0].ProdID != "S-1" {
		t.Fatalf("unexpected latest: %#v", latest)
	}

	count, err := st.CountProductsInCategory(ctx, drills.ID)
	if err != nil || count != 2 {
		t.Fatalf("count products: count=%d err=%v", count, err)
	}

	images, err := st.AddProductImages(ctx, older.ID, []models.ProductImage{
		{ImagePath: "uploads/products/1-a.png", IsMain: true, CreatedAt: base},
		{ImagePath: "uploads/products/2-b.png", CreatedAt: base.Add(time.Second)},
	})
	if err != nil {
		t.Fatalf("add images: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	main, err := st.SetMainProductImage(ctx, images[1].ID)
	if err != nil {
		t.Fatalf("set main image: %v", err)
	}
	if main == nil || !main.IsMain {
		t.Fatalf("expected main image, got %#v", main)
	}
	listed, err := st.ListProductImages(ctx, older.ID)
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	mains := 0
	for _, image := range listed {
		if image.IsMain {
			mains++
			if image.ID != images[1].ID {
				t.Fatalf("wrong main image: %#v", image)
			}
		}
	}
	if mains != 1 {
		t.Fatalf("expected exactly one main image, got %d", mains)
	}

	if missing, err := st.SetMainProductImage(ctx, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing image, got %#v err=%v", missing, err)
	}

	if deleted, err := st.DeleteProduct(ctx, older.ID); err != nil || !deleted {
		t.Fatalf("delete product: deleted=%v err=%v", deleted, err)
	}
	listed, err = st.ListProductImages(ctx, older.ID)
	if err != nil {
		t.Fatalf("list images after delete: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected image rows to cascade, got %d", len(listed))
	}
}

func TestProductRequiresExistingCategory(t *testing.T) {
	st := testStore(t)
	now := time.Now().UTC()
	product := &models.Product{ProdID: "X", Name: "X", CategoryID: "missing", Date: now, CreatedAt: now, UpdatedAt: now}
	if err := st.CreateProduct(context.Background(), product); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestBannerActivationCapAndOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var banners []*models.Banner
	for i := 0; i < 3; i++ {
		banner := &models.Banner{Title: "b", Image: "uploads/banners/x.png", CreatedAt: now.Add(time.Duration(i) * time.Second), UpdatedAt: now}
		if err := st.CreateBanner(ctx, banner); err != nil {
			t.Fatalf("create banner: %v", err)
		}
		if banner.Order != i {
			t.Fatalf("expected order %d, got %d", i, banner.Order)
		}
		if banner.TextMode != models.TextModeDark {
			t.Fatalf("expected default dark text mode, got %q", banner.TextMode)
		}
		banners = append(banners, banner)
	}

	for _, banner := range banners[:2] {
		if _, err := st.ActivateBanner(ctx, banner.ID, models.MaxActiveBanners, now); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}
	if _, err := st.ActivateBanner(ctx, banners[0].ID, models.MaxActiveBanners, now); err != nil {
		t.Fatalf("re-activating an active banner should succeed: %v", err)
	}
	if _, err := st.ActivateBanner(ctx, banners[2].ID, models.MaxActiveBanners, now); !errors.Is(err, ErrActiveBannerLimit) {
		t.Fatalf("expected ErrActiveBannerLimit, got %v", err)
	}

	if _, err := st.DeactivateBanner(ctx, banners[0].ID, now); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := st.ActivateBanner(ctx, banners[2].ID, models.MaxActiveBanners, now); err != nil {
		t.Fatalf("activate after deactivate: %v", err)
	}

	if ok, err := st.SetBannerOrder(ctx, banners[2].ID, 0, now); err != nil || !ok {
		t.Fatalf("set order: ok=%v err=%v", ok, err)
	}
	if ok, err := st.SetBannerOrder(ctx, banners[1].ID, 1, now); err != nil || !ok {
		t.Fatalf("set order: ok=%v err=%v", ok, err)
	}
	active, err := st.ListActiveBanners(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 || active[0].ID != banners[2].ID || active[1].ID != banners[1].ID {
		t.Fatalf("unexpected active order: %#v", active)
	}

	if ok, err := st.SetBannerOrder(ctx, "missing", 3, now); err != nil || ok {
		t.Fatalf("expected missing banner to report false, got ok=%v err=%v", ok, err)
	}
}

func TestReferenceLookups(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	path := "uploads/products/1700-blue&red.png"

	category := seedCategory(t, st, "Drills", "uploads/categories/1700-blue&red.png", now)
	product := seedProduct(t, st, "D-1", "Drill", category.ID, now)
	product.Info = []models.ProductInfoEntry{{Key: "Manual", Value: "see 1700-blue&red.png"}}
	product.UpdatedAt = now
	if err := st.UpdateProduct(ctx, product); err != nil {
		t.Fatalf("update product: %v", err)
	}
	if _, err := st.AddProductImages(ctx, product.ID, []models.ProductImage{{ImagePath: path, CreatedAt: now}}); err != nil {
		t.Fatalf("add image: %v", err)
	}
	banner := &models.Banner{Title: "hero", Image: "uploads/banners/a.png", MobileImage: path, CreatedAt: now, UpdatedAt: now}
	if err := st.CreateBanner(ctx, banner); err != nil {
		t.Fatalf("create banner: %v", err)
	}

	images, err := st.ProductImagesByPath(ctx, path)
	if err != nil || len(images) != 1 || images[0].Label != product.ID {
		t.Fatalf("product images: %#v err=%v", images, err)
	}
	banners, err := st.BannersByImage(ctx, path)
	if err != nil || len(banners) != 1 || banners[0].Field != "mobile_image" {
		t.Fatalf("banners: %#v err=%v", banners, err)
	}
	categories, err := st.CategoriesByImage(ctx, path)
	if err != nil || len(categories) != 0 {
		t.Fatalf("categories should not match another folder: %#v err=%v", categories, err)
	}
	posts, err := st.PostsByImage(ctx, path)
	if err != nil || len(posts) != 0 {
		t.Fatalf("posts: %#v err=%v", posts, err)
	}
	products, err := st.ProductsMentioning(ctx, "1700-blue&red.png")
	if err != nil || len(products) != 1 || products[0].Field != "product_info" {
		t.Fatalf("products: %#v err=%v", products, err)
	}
	if products, err := st.ProductsMentioning(ctx, "1700-BLUE&RED.png"); err != nil || len(products) != 0 {
		t.Fatalf("substring match should be case-sensitive: %#v err=%v", products, err)
	}
}
