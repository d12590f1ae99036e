//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededProductCount {
		t.Fatalf("expected %d products, got %d", seededProductCount, len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var ssd *productResponse
	for i := range products {
		if products[i].ID == "ssd-980-pro-2tb" {
			ssd = &products[i]
			break
		}
	}

	if ssd == nil {
		t.Fatal("product 'ssd-980-pro-2tb' not found")
	}
	if ssd.Name != "980 PRO NVMe SSD 2TB" {
		t.Errorf("name: got %q, want %q", ssd.Name, "980 PRO NVMe SSD 2TB")
	}
	if ssd.Brand != "Samsung" {
		t.Errorf("brand: got %q, want %q", ssd.Brand, "Samsung")
	}
	if ssd.Price != 169.99 {
		t.Errorf("price: got %v, want 169.99", ssd.Price)
	}
	if ssd.Category != "storage" {
		t.Errorf("category: got %q, want %q", ssd.Category, "storage")
	}
	if ssd.Image == "" {
		t.Error("image is empty")
	}
}

func TestListProducts_AutomaticDiscountShown(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	// The cooling category carries an automatic 20% campaign.
	var cooler *productResponse
	for i := range products {
		if products[i].ID == "cooler-nh-d15" {
			cooler = &products[i]
			break
		}
	}

	if cooler == nil {
		t.Fatal("product 'cooler-nh-d15' not found")
	}
	if cooler.Price != 119.95 {
		t.Errorf("price: got %v, want 119.95", cooler.Price)
	}
	if cooler.DisplayPrice != 95.96 {
		t.Errorf("displayPrice: got %v, want 95.96", cooler.DisplayPrice)
	}
	if cooler.DiscountPercentage != 20 {
		t.Errorf("discountPercentage: got %v, want 20", cooler.DiscountPercentage)
	}
}

func TestListProducts_UndiscountedProductAtFullPrice(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)

	var pcCase *productResponse
	for i := range products {
		if products[i].ID == "case-4000d" {
			pcCase = &products[i]
			break
		}
	}

	if pcCase == nil {
		t.Fatal("product 'case-4000d' not found")
	}
	if pcCase.DisplayPrice != pcCase.Price {
		t.Errorf("displayPrice: got %v, want full price %v", pcCase.DisplayPrice, pcCase.Price)
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/gpu-rtx-4070-super")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "gpu-rtx-4070-super" {
		t.Errorf("id: got %q, want %q", product.ID, "gpu-rtx-4070-super")
	}
	if product.Name != "GeForce RTX 4070 Super" {
		t.Errorf("name: got %q, want %q", product.Name, "GeForce RTX 4070 Super")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-part")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}
