package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"salla-analytics/internal/models"
	"salla-analytics/internal/warehouse"
)

// record is one CSV row addressed by header name.
type record struct {
	columns map[string]int
	fields  []string
	line    int
}

func (r record) get(name string) string {
	if i, ok := r.columns[name]; ok && i < len(r.fields) {
		return strings.TrimSpace(r.fields[i])
	}
	return ""
}

func (r record) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", r.line, fmt.Sprintf(format, args...))
}

// readRows streams rows of a headered CSV. Header names are matched
// case-insensitively and every required column must be present; extra
// columns are ignored.
func readRows(in io.Reader, required []string, fn func(record) error) (int, error) {
	reader := csv.NewReader(in)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("missing header row")
		}
		return 0, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	n := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		line, _ := reader.FieldPos(0)
		if err := fn(record{columns: columns, fields: fields, line: line}); err != nil {
			return n, err
		}
		n++
	}
}

var orderItemColumns = []string{
	"order_id", "product_id", "seller_id", "customer_id",
	"order_purchase_timestamp", "quantity", "total_item_price", "total_shipping_price",
}

// orderLineColumns is the order_items.csv contract when orders.csv
// supplies the customer and purchase time of each order.
var orderLineColumns = []string{
	"order_id", "product_id", "seller_id", "quantity", "total_item_price", "total_shipping_price",
}

func parseOrderItem(r record) (models.OrderItem, error) {
	return parseItem(r, true)
}

// parseOrderLine reads a line whose customer and purchase time may be left
// for the order header to fill.
func parseOrderLine(r record) (models.OrderItem, error) {
	return parseItem(r, false)
}

func parseItem(r record, standalone bool) (models.OrderItem, error) {
	item := models.OrderItem{
		OrderID:    r.get("order_id"),
		ProductID:  r.get("product_id"),
		SellerID:   r.get("seller_id"),
		CustomerID: r.get("customer_id"),
	}
	if standalone && (item.OrderID == "" || item.ProductID == "" || item.CustomerID == "") {
		return item, r.errorf("order_id, product_id and customer_id are required")
	}
	if item.OrderID == "" || item.ProductID == "" {
		return item, r.errorf("order_id and product_id are required")
	}

	var err error
	if at := r.get("order_purchase_timestamp"); standalone || at != "" {
		if item.PurchasedAt, err = warehouse.ParseTimestamp(at); err != nil {
			return item, r.errorf("%v", err)
		}
	}
	if item.Quantity, err = strconv.ParseInt(r.get("quantity"), 10, 64); err != nil {
		return item, r.errorf("invalid quantity %q", r.get("quantity"))
	}
	if item.ItemPrice, err = parseAmount(r.get("total_item_price")); err != nil {
		return item, r.errorf("invalid total_item_price %q", r.get("total_item_price"))
	}
	if item.ShippingPrice, err = parseAmount(r.get("total_shipping_price")); err != nil {
		return item, r.errorf("invalid total_shipping_price %q", r.get("total_shipping_price"))
	}
	return item, nil
}

// parseAmount reads a price; an empty cell is zero.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

var orderColumns = []string{"order_id", "customer_id", "order_purchase_timestamp"}

// order is one row of orders.csv.
type order struct {
	id          string
	customerID  string
	purchasedAt time.Time
}

func parseOrder(r record) (order, error) {
	o := order{id: r.get("order_id"), customerID: r.get("customer_id")}
	if o.id == "" || o.customerID == "" {
		return o, r.errorf("order_id and customer_id are required")
	}
	var err error
	if o.purchasedAt, err = warehouse.ParseTimestamp(r.get("order_purchase_timestamp")); err != nil {
		return o, r.errorf("%v", err)
	}
	return o, nil
}

var productColumns = []string{"product_id", "product_category_name"}

func parseProduct(r record) (models.Product, error) {
	p := models.Product{ProductID: r.get("product_id"), Category: r.get("product_category_name")}
	if p.ProductID == "" {
		return p, r.errorf("product_id is required")
	}
	return p, nil
}

var customerColumns = []string{"customer_id", "customer_state", "effective_from", "effective_to"}

func parseCustomer(r record) (models.CustomerVersion, error) {
	c := models.CustomerVersion{CustomerID: r.get("customer_id"), State: r.get("customer_state")}
	if c.CustomerID == "" || c.State == "" {
		return c, r.errorf("customer_id and customer_state are required")
	}

	var err error
	if c.EffectiveFrom, err = warehouse.ParseTimestamp(r.get("effective_from")); err != nil {
		return c, r.errorf("effective_from: %v", err)
	}
	if to := r.get("effective_to"); to != "" {
		if c.EffectiveTo, err = warehouse.ParseTimestamp(to); err != nil {
			return c, r.errorf("effective_to: %v", err)
		}
		if !c.EffectiveTo.After(c.EffectiveFrom) {
			return c, r.errorf("effective_to must be after effective_from")
		}
	}
	return c, nil
}
