package demo

import (
	"strings"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/selector"
)

// ProductsKey is the AppState key of the products feature.
const ProductsKey = "products"

// Product action types.
const (
	ActionLoadProducts   = "[Products] Load Success"
	ActionUpdateSearch   = "[Products] Update Search"
	ActionAddToCart      = "[Products] Add To Cart"
	ActionRemoveFromCart = "[Products] Remove From Cart"
)

// Product is a catalog entry.
type Product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CartItem is a product reference with an amount.
type CartItem struct {
	ProductID int `json:"product_id"`
	Amount    int `json:"amount"`
}

// ProductState is the products slice.
type ProductState struct {
	Products []Product  `json:"products"`
	Search   string     `json:"search"`
	Cart     []CartItem `json:"cart"`
}

// ProductsReducer is a classic reducer for the products slice.
func ProductsReducer(state any, a ir.Action) any {
	s, ok := state.(ProductState)
	if !ok {
		s = ProductState{Products: []Product{}, Cart: []CartItem{}}
	}

	switch a.Type {
	case ActionLoadProducts:
		if products, ok := a.Payload.([]Product); ok {
			s.Products = products
		}
	case ActionUpdateSearch:
		if search, ok := a.Payload.(string); ok {
			s.Search = search
		}
	case ActionAddToCart:
		id, ok := a.Payload.(int)
		if !ok {
			return s
		}
		cart := make([]CartItem, 0, len(s.Cart)+1)
		found := false
		for _, item := range s.Cart {
			if item.ProductID == id {
				item.Amount++
				found = true
			}
			cart = append(cart, item)
		}
		if !found {
			cart = append(cart, CartItem{ProductID: id, Amount: 1})
		}
		s.Cart = cart
	case ActionRemoveFromCart:
		id, ok := a.Payload.(int)
		if !ok {
			return s
		}
		cart := make([]CartItem, 0, len(s.Cart))
		for _, item := range s.Cart {
			if item.ProductID != id {
				cart = append(cart, item)
			}
		}
		s.Cart = cart
	}
	return s
}

// ProductsConfig registers the products reducer with an engine store.
func ProductsConfig(exts ...engine.Extension) engine.Config {
	return engine.Config{
		Reducers:   map[string]engine.Reducer{ProductsKey: ProductsReducer},
		Extensions: exts,
	}
}

// Memoized selectors over the whole AppState.
var (
	getProductState = selector.FeatureState[ProductState](ProductsKey)
	getProducts     = selector.Create1(getProductState, func(s ProductState) []Product { return s.Products })
	getSearch       = selector.Create1(getProductState, func(s ProductState) string { return s.Search })
	getCart         = selector.Create1(getProductState, func(s ProductState) []CartItem { return s.Cart })

	// FilteredProducts lists products whose name contains the search text.
	FilteredProducts = selector.Create2(getProducts, getSearch, func(products []Product, search string) []Product {
		search = strings.ToUpper(search)
		out := []Product{}
		for _, p := range products {
			if strings.Contains(strings.ToUpper(p.Name), search) {
				out = append(out, p)
			}
		}
		return out
	})

	// CartTotal is the summed price of every cart item.
	CartTotal = selector.Create2(getProducts, getCart, func(products []Product, cart []CartItem) float64 {
		prices := make(map[int]float64, len(products))
		for _, p := range products {
			prices[p.ID] = p.Price
		}
		total := 0.0
		for _, item := range cart {
			total += prices[item.ProductID] * float64(item.Amount)
		}
		return total
	})
)
