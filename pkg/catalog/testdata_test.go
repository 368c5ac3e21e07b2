package catalog

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Type: "product", Status: StatusPublish, Kind: "simple", Title: "Blue Shirt", SKU: "SH-001",
			Permalink: "https://shop.test/p/blue-shirt", Thumbnail: "https://shop.test/i/1.jpg", PriceHTML: "$10.00", Purchasable: true},
		{ID: 2, Type: "product", Status: StatusPublish, Kind: "variable", Title: "Shirt Pack", Content: "three cotton shirts",
			Permalink: "https://shop.test/p/shirt-pack", PriceHTML: "$25.00 – $30.00", Purchasable: true},
		{ID: 3, Type: "product", Status: StatusPublish, Kind: "simple", Title: "Hidden Shirt",
			Permalink: "https://shop.test/p/hidden", PriceHTML: "$5.00", Purchasable: true, Visibility: []string{"exclude-from-search"}},
		{ID: 4, Type: "product", Status: StatusPublish, Kind: "simple", Title: "Shirtdress",
			Permalink: "https://shop.test/p/shirtdress", PriceHTML: "$40.00", Visibility: []string{"outofstock"}},
		{ID: 5, Type: "product", Status: "draft", Kind: "simple", Title: "Draft Shirt",
			Permalink: "https://shop.test/p/draft", PriceHTML: "$1.00"},
		{ID: 6, Type: "page", Status: StatusPublish, Title: "Shirt size guide",
			Permalink: "https://shop.test/size-guide"},
		{ID: 7, Type: "product", Status: StatusPublish, Kind: "simple", Title: "Wool Hoodie", Tags: []string{"winter", "shirt"},
			Permalink: "https://shop.test/p/hoodie", PriceHTML: "$50.00", Purchasable: true},
	}
}
