package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

const productsJSON = `[
  {"name": "Afrika Etnik Baskılı Dantelli Gecelik", "color": "siyah", "price": 1200, "final_price": 960, "discount": 20, "category": "gecelik", "stock": 3},
  {"name": "Hamile Lohusa  Pijama Takımı", "color": "pembe", "price": "1100.50", "category": "pijama", "stock": 0},
  {"name": "Bozuk Ürün", "color": "mavi", "price": 100, "final_price": 150, "stock": 1},
  {"name": "", "color": "mavi", "price": 100, "stock": 1},
  {"name": "Eksi Stok", "color": "mavi", "price": 100, "stock": -2}
]`

func writeTenant(t *testing.T, dir, tenant, file, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, tenant), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tenant, file), []byte(body), 0o644))
}

func TestFileSourceProducts(t *testing.T) {
	dir := t.TempDir()
	writeTenant(t, dir, "butik", ProductsFile, productsJSON)
	src := NewFileSource(dir, nil)

	products, rep, err := src.Products(context.Background(), "butik")
	require.NoError(t, err)
	assert.Equal(t, Report{Loaded: 2, Skipped: 3}, rep)
	require.Len(t, products, 2)

	assert.Equal(t, "SİYAH", products[0].Color)
	assert.Equal(t, "960.00 TL", model.FormatPrice(products[0].FinalPrice))
	assert.True(t, products[0].HasDiscount())

	assert.Equal(t, "Hamile Lohusa Pijama Takımı", products[1].Name)
	assert.True(t, products[1].FinalPrice.Equal(products[1].Price), "missing final price means no discount")
	assert.Equal(t, "PEMBE", products[1].Color)
}

func TestFileSourceWrappedProducts(t *testing.T) {
	dir := t.TempDir()
	writeTenant(t, dir, "butik", ProductsFile, `{"products": [{"name": "Saten Sabahlık", "color": "BORDO", "price": 500, "stock": 1}]}`)

	products, _, err := NewFileSource(dir, nil).Products(context.Background(), "butik")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Saten Sabahlık", products[0].Name)
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir, nil)

	_, _, err := src.Products(context.Background(), "missing")
	assert.Error(t, err)

	_, _, err = src.Products(context.Background(), "../etc")
	assert.Error(t, err)

	writeTenant(t, dir, "bad", ProductsFile, `not json`)
	_, _, err = src.Products(context.Background(), "bad")
	assert.Error(t, err)
}

func TestBusinessInfo(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(dir, nil)

	info, err := src.BusinessInfo(context.Background(), "butik")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultBusinessInfo(), info)

	writeTenant(t, dir, "butik", BusinessFile, `{"name": "Butik Ceylan", "phone": "0555 111 22 33", "greeting_template": "Selam {name}"}`)
	info, err = src.BusinessInfo(context.Background(), "butik")
	require.NoError(t, err)
	assert.Equal(t, "Butik Ceylan", info.Name)
	assert.Equal(t, "0555 111 22 33", info.Phone)
	assert.Equal(t, model.DefaultWebsite, info.Website)
	assert.Equal(t, "Selam {name}", info.GreetingTemplate)
}

func TestTenants(t *testing.T) {
	dir := t.TempDir()
	writeTenant(t, dir, "b", ProductsFile, `[]`)
	writeTenant(t, dir, "a", ProductsFile, `[]`)
	writeTenant(t, dir, "c", BusinessFile, `{}`)

	tenants, err := NewFileSource(dir, nil).Tenants()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tenants)
}

func TestValidTenantID(t *testing.T) {
	assert.True(t, ValidTenantID("butik-ceylan_01"))
	assert.False(t, ValidTenantID(""))
	assert.False(t, ValidTenantID(".."))
	assert.False(t, ValidTenantID("a/b"))
}

func TestWatcherReportsChangedTenant(t *testing.T) {
	dir := t.TempDir()
	writeTenant(t, dir, "butik", ProductsFile, `[]`)

	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	changed := make(chan string, 4)
	go w.Run(ctx, func(id string) { changed <- id })

	time.Sleep(50 * time.Millisecond)
	writeTenant(t, dir, "butik", ProductsFile, productsJSON)
	writeTenant(t, dir, "butik", "notes.txt", "ignored")

	select {
	case id := <-changed:
		assert.Equal(t, "butik", id)
	case <-ctx.Done():
		t.Fatal("timeout waiting for catalog change")
	}
}
