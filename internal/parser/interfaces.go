package parser

import "io"

// Parser defines a generic interface for parsing HTML content
type Parser[T any] interface {
	ParseHtml(body io.Reader) ([]T, error)
}

// PagedParser parses one page of a paginated listing and reports whether a
// next page is linked
type PagedParser[T any] interface {
	Parser[T]
	ParseHtmlPage(body io.Reader) (items []T, hasNext bool, err error)
}

// SingleResultParser parses a page describing exactly one item
type SingleResultParser[T any] interface {
	ParseHtmlSingle(body io.Reader) (T, error)
}
