//-------------------------------------------------------------------------
//
// pgEdge Sales Warehouse
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads the flat sales extract into raw rows. Every value is
// kept as the original text; typing happens in the normalizer.
package source

import (
	"strings"
)

// Field identifies a column of the flat sales extract.
type Field string

// Source fields.
const (
	FieldOrderNumber      Field = "order_number"
	FieldQuantity         Field = "quantity_ordered"
	FieldUnitPrice        Field = "price_each"
	FieldOrderLineNumber  Field = "order_line_number"
	FieldSales            Field = "sales"
	FieldOrderDate        Field = "order_date"
	FieldStatus           Field = "status"
	FieldProductLine      Field = "product_line"
	FieldMSRP             Field = "msrp"
	FieldProductCode      Field = "product_code"
	FieldCustomerName     Field = "customer_name"
	FieldPhone            Field = "phone"
	FieldAddressLine1     Field = "address_line1"
	FieldAddressLine2     Field = "address_line2"
	FieldCity             Field = "city"
	FieldState            Field = "state"
	FieldPostalCode       Field = "postal_code"
	FieldCountry          Field = "country"
	FieldTerritory        Field = "territory"
	FieldContactLastName  Field = "contact_last_name"
	FieldContactFirstName Field = "contact_first_name"
	FieldDealSize         Field = "deal_size"
)

// Column pairs a canonical header with its field.
type Column struct {
	Header string
	Field  Field
}

// Columns lists the canonical extract layout in file order.
var Columns = []Column{
	{"ORDERNUMBER", FieldOrderNumber},
	{"QUANTITYORDERED", FieldQuantity},
	{"PRICEEACH", FieldUnitPrice},
	{"ORDERLINENUMBER", FieldOrderLineNumber},
	{"SALES", FieldSales},
	{"ORDERDATE", FieldOrderDate},
	{"STATUS", FieldStatus},
	{"PRODUCTLINE", FieldProductLine},
	{"MSRP", FieldMSRP},
	{"PRODUCTCODE", FieldProductCode},
	{"CUSTOMERNAME", FieldCustomerName},
	{"PHONE", FieldPhone},
	{"ADDRESSLINE1", FieldAddressLine1},
	{"ADDRESSLINE2", FieldAddressLine2},
	{"CITY", FieldCity},
	{"STATE", FieldState},
	{"POSTALCODE", FieldPostalCode},
	{"COUNTRY", FieldCountry},
	{"TERRITORY", FieldTerritory},
	{"CONTACTLASTNAME", FieldContactLastName},
	{"CONTACTFIRSTNAME", FieldContactFirstName},
	{"DEALSIZE", FieldDealSize},
}

// Required lists the fields every extract must carry a column for.
var Required = []Field{
	FieldOrderNumber,
	FieldQuantity,
	FieldUnitPrice,
	FieldOrderDate,
	FieldCustomerName,
	FieldProductCode,
}

// HeaderMap maps header text (matched case-insensitively) to a field.
type HeaderMap map[string]Field

// DefaultHeaderMap accepts the canonical upper-case headers as well as the
// snake_case field names.
func DefaultHeaderMap() HeaderMap {
	m := make(HeaderMap, len(Columns)*2)
	for _, c := range Columns {
		m[c.Header] = c.Field
		m[strings.ToUpper(string(c.Field))] = c.Field
	}
	return m
}

// Lookup resolves a header cell to a field.
func (m HeaderMap) Lookup(header string) (Field, bool) {
	f, ok := m[strings.ToUpper(strings.TrimSpace(header))]
	return f, ok
}

// Row is one order line exactly as read from the extract.
type Row struct {
	// Line is the 1-based line number in the source file.
	Line int

	OrderNumber      string
	Quantity         string
	UnitPrice        string
	OrderLineNumber  string
	Sales            string
	OrderDate        string
	Status           string
	ProductLine      string
	MSRP             string
	ProductCode      string
	CustomerName     string
	Phone            string
	AddressLine1     string
	AddressLine2     string
	City             string
	State            string
	PostalCode       string
	Country          string
	Territory        string
	ContactLastName  string
	ContactFirstName string
	DealSize         string
}

func (r *Row) ref(f Field) *string {
	switch f {
	case FieldOrderNumber:
		return &r.OrderNumber
	case FieldQuantity:
		return &r.Quantity
	case FieldUnitPrice:
		return &r.UnitPrice
	case FieldOrderLineNumber:
		return &r.OrderLineNumber
	case FieldSales:
		return &r.Sales
	case FieldOrderDate:
		return &r.OrderDate
	case FieldStatus:
		return &r.Status
	case FieldProductLine:
		return &r.ProductLine
	case FieldMSRP:
		return &r.MSRP
	case FieldProductCode:
		return &r.ProductCode
	case FieldCustomerName:
		return &r.CustomerName
	case FieldPhone:
		return &r.Phone
	case FieldAddressLine1:
		return &r.AddressLine1
	case FieldAddressLine2:
		return &r.AddressLine2
	case FieldCity:
		return &r.City
	case FieldState:
		return &r.State
	case FieldPostalCode:
		return &r.PostalCode
	case FieldCountry:
		return &r.Country
	case FieldTerritory:
		return &r.Territory
	case FieldContactLastName:
		return &r.ContactLastName
	case FieldContactFirstName:
		return &r.ContactFirstName
	case FieldDealSize:
		return &r.DealSize
	}
	return nil
}

// Get returns the value of a field, or "" for an unknown field.
func (r *Row) Get(f Field) string {
	if p := r.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns a field. Unknown fields are ignored.
func (r *Row) Set(f Field, v string) {
	if p := r.ref(f); p != nil {
		*p = v
	}
}

// Values returns the row's fields in canonical column order.
func (r *Row) Values() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r.Get(c.Field)
	}
	return out
}

// Known reports whether f is a field of the extract.
func Known(f Field) bool {
	var r Row
	return r.ref(f) != nil
}
