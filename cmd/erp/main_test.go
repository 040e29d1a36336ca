package main

import (
	"testing"

	_ "github.com/alvarodevdoo/erp/testing"
)

func TestMainReturnsInTestMode(t *testing.T) {
	main()
}
