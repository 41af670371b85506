package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"order-matching-service/internal/models"
	"order-matching-service/internal/repository"
)

// ImportFormat is the file format of an order import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Example  string `json:"example"`
}

// OrderImportColumns is the layout of an order import file. One row per
// order line; rows sharing an order_id form one order.
var OrderImportColumns = []ImportTemplateColumn{
	{Name: "order_id", Required: true, Example: "ORDER-123"},
	{Name: "product_sku", Required: true, Example: "PROD-001"},
	{Name: "product_name", Example: "Sample Product"},
	{Name: "price", Example: "29.99"},
	{Name: "quantity", Example: "1"},
	{Name: "date", Example: "2023-05-15"},
	{Name: "customer_name", Example: "John Doe"},
	{Name: "customer_email", Example: "john@example.com"},
	{Name: "shipping_country", Example: "US"},
	{Name: "status", Example: "processing"},
}

var orderImportSamples = [][]string{
	{"ORDER-123", "PROD-001", "Sample Product", "29.99", "1", "2023-05-15", "John Doe", "john@example.com", "US", "processing"},
	{"ORDER-123", "PROD-002", "Another Product", "19.99", "2", "2023-05-15", "John Doe", "john@example.com", "US", "processing"},
	{"ORDER-124", "PROD-001", "Sample Product", "29.99", "1", "2023-05-16", "Jane Smith", "jane@example.com", "UK", "shipped"},
}

var importDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ImportRowError reports a row that could not be used
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// ImportPreview is the parsed content of an import file
type ImportPreview struct {
	FileName    string             `json:"fileName"`
	Marketplace models.Marketplace `json:"marketplace"`
	TotalRows   int                `json:"totalRows"`
	Orders      []*models.Order    `json:"orders"`
	Errors      []ImportRowError   `json:"errors"`
}

// ImportResult is the outcome of an import
type ImportResult struct {
	FileName    string             `json:"fileName"`
	Marketplace models.Marketplace `json:"marketplace"`
	Imported    int                `json:"imported"`
	Skipped     int                `json:"skipped"`
	Errors      []ImportRowError   `json:"errors"`
	OrderIDs    []string           `json:"orderIds"`
}

// OrderImportService turns order spreadsheets into orders awaiting matching
type OrderImportService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	activity ActivityRecorder
	logger   *logrus.Entry
	now      func() time.Time
}

// NewOrderImportService creates a new order import service
func NewOrderImportService(products repository.ProductRepository, orders repository.OrderRepository, activity ActivityRecorder, logger *logrus.Logger) *OrderImportService {
	return &OrderImportService{
		products: products,
		orders:   orders,
		activity: activity,
		logger:   logger.WithField("component", "order_import"),
		now:      time.Now,
	}
}

// Preview parses a file and resolves item names and product ids from the
// catalog by SKU. Nothing is written.
func (s *OrderImportService) Preview(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*ImportPreview, error) {
	rows, err := parseImportFile(file, fileName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: the file contains no data rows", ErrInvalidImport)
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	bySKU := make(map[string]models.Product, len(products))
	for _, p := range products {
		if p.SKU == "" {
			continue
		}
		if _, ok := bySKU[p.SKU]; !ok {
			bySKU[p.SKU] = p
		}
	}

	orders, rowErrors := s.buildOrders(rows, fileName, marketplace, bySKU)
	return &ImportPreview{
		FileName:    fileName,
		Marketplace: marketplace,
		TotalRows:   len(rows),
		Orders:      orders,
		Errors:      rowErrors,
	}, nil
}

// Import parses a file and creates its orders. Every order is flagged for
// matching and every item's product id is cleared. Orders whose number
// already exists for the marketplace are skipped.
func (s *OrderImportService) Import(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*ImportResult, error) {
	result, err := s.importOrders(ctx, file, fileName, marketplace)

	details := models.JSONB{"file_name": fileName, "marketplace": string(marketplace)}
	if result != nil {
		details["orders_count"] = result.Imported
		details["skipped"] = result.Skipped
	}
	s.record(models.NewActivityLog(models.ActivityOrdersImported).
		WithResource(fileName).
		WithDetails(details).
		WithError(err).
		Build())

	if err != nil {
		s.logger.WithError(err).WithField("file", fileName).Warn("Order import failed")
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"file":     fileName,
		"imported": result.Imported,
		"skipped":  result.Skipped,
	}).Info("Imported orders")
	return result, nil
}

func (s *OrderImportService) importOrders(ctx context.Context, file io.Reader, fileName string, marketplace models.Marketplace) (*ImportResult, error) {
	preview, err := s.Preview(ctx, file, fileName, marketplace)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		FileName:    fileName,
		Marketplace: marketplace,
		Errors:      preview.Errors,
		OrderIDs:    []string{},
	}
	if len(preview.Orders) == 0 {
		return nil, fmt.Errorf("%w: no valid orders in file", ErrInvalidImport)
	}

	numbers := make([]string, 0, len(preview.Orders))
	for _, o := range preview.Orders {
		numbers = append(numbers, o.OrderID)
	}
	existing, err := s.orders.ExistingOrderIDs(ctx, marketplace, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing orders: %w", err)
	}

	toCreate := make([]*models.Order, 0, len(preview.Orders))
	for _, o := range preview.Orders {
		if existing[o.OrderID] {
			result.Skipped++
			continue
		}
		o.RequiresProductMatching = true
		for i := range o.Items {
			o.Items[i].ProductID = ""
			o.Items[i].AdditionalMatches = nil
		}
		toCreate = append(toCreate, o)
	}

	if len(toCreate) > 0 {
		if err := s.orders.CreateBatch(ctx, toCreate); err != nil {
			return nil, fmt.Errorf("failed to create orders: %w", err)
		}
	}
	for _, o := range toCreate {
		result.OrderIDs = append(result.OrderIDs, o.OrderID)
	}
	result.Imported = len(toCreate)
	return result, nil
}

// buildOrders groups rows by order_id, keeping first-seen order
func (s *OrderImportService) buildOrders(rows []map[string]string, fileName string, marketplace models.Marketplace, bySKU map[string]models.Product) ([]*models.Order, []ImportRowError) {
	var (
		orders    []*models.Order
		byNumber  = make(map[string]*models.Order)
		rowErrors = []ImportRowError{}
	)

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])
		number := row["order_id"]
		sku := row["product_sku"]
		if number == "" {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Column: "order_id", Message: "order_id is required"})
			continue
		}
		if sku == "" {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Column: "product_sku", Message: "product_sku is required"})
			continue
		}

		item := models.OrderItem{
			ProductSKU:  sku,
			ProductName: row["product_name"],
			Quantity:    1,
		}
		if v := row["quantity"]; v != "" {
			q, err := strconv.Atoi(v)
			if err != nil || q < 1 {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Column: "quantity", Message: "quantity must be a positive whole number"})
				continue
			}
			item.Quantity = q
		}
		if v := row["price"]; v != "" {
			p, err := strconv.ParseFloat(v, 64)
			if err != nil || p < 0 {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Column: "price", Message: "price must be a non-negative number"})
				continue
			}
			item.Price = p
		}
		if product, ok := bySKU[sku]; ok {
			item.ProductID = product.ID
			if item.ProductName == "" {
				item.ProductName = product.Name
			}
		}
		if item.ProductName == "" {
			item.ProductName = "Unknown Product"
		}

		order, ok := byNumber[number]
		if !ok {
			order = &models.Order{
				OrderID:         number,
				Marketplace:     marketplace,
				OrderDate:       s.parseDate(row["date"]),
				CustomerName:    row["customer_name"],
				CustomerEmail:   row["customer_email"],
				ShippingCountry: row["shipping_country"],
				OrderStatus:     row["status"],
				ImportedFile:    fileName,
				Items:           models.OrderItems{},
			}
			if order.OrderStatus == "" {
				order.OrderStatus = models.OrderStatusProcessing
			}
			byNumber[number] = order
			orders = append(orders, order)
		}
		order.Items = append(order.Items, item)
	}

	for _, order := range orders {
		subtotal := 0.0
		for _, item := range order.Items {
			subtotal += item.Total()
		}
		order.Subtotal = roundCents(subtotal)
		order.Total = order.Subtotal
		order.RequiresProductMatching = true
	}
	return orders, rowErrors
}

func (s *OrderImportService) parseDate(v string) time.Time {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return s.now()
}

func (s *OrderImportService) record(log *models.ActivityLog) {
	if s.activity != nil {
		s.activity.Record(log)
	}
}

// WriteTemplate writes an import template in the given format
func WriteTemplate(w io.Writer, format ImportFormat) error {
	switch format {
	case ImportFormatXLSX:
		return writeXLSXTemplate(w)
	default:
		return writeCSVTemplate(w)
	}
}

func writeCSVTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)

	headers := make([]string, len(OrderImportColumns))
	for i, col := range OrderImportColumns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	if err := writer.WriteAll(orderImportSamples); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeXLSXTemplate(w io.Writer) error {
	const sheetName = "Orders"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range OrderImportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		style := headerStyle
		if col.Required {
			headerText = col.Name + " *"
			style = requiredStyle
		}
		f.SetCellValue(sheetName, cell, headerText)
		f.SetCellStyle(sheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	for rowIdx, sample := range orderImportSamples {
		for colIdx, value := range sample {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func parseImportFile(file io.Reader, fileName string) ([]map[string]string, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(file)
	case strings.HasSuffix(lower, ".xlsx"):
		return parseXLSX(file)
	}
	return nil, fmt.Errorf("%w: only CSV and XLSX files are supported", ErrInvalidImport)
}

func normalizeHeaders(headers []string) {
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}
}

func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrInvalidImport, err)
	}
	normalizeHeaders(headers)

	var rows []map[string]string
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: error reading line %d: %v", ErrInvalidImport, lineNum+1, err)
		}
		lineNum++
		if blankRecord(record) {
			continue
		}

		row := make(map[string]string, len(headers)+1)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum)
		rows = append(rows, row)
	}
	return rows, nil
}

func parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrInvalidImport, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found in Excel file", ErrInvalidImport)
	}

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet: %v", ErrInvalidImport, err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidImport)
	}

	headers := excelRows[0]
	normalizeHeaders(headers)

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		if blankRecord(excelRow) {
			continue
		}
		row := make(map[string]string, len(headers)+1)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
