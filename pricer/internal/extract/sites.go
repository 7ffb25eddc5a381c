package extract

import (
	"regexp"
	"time"
)

// usedMarkers are the lexical variants flagging used/refurbished goods.
// Shared by every site; matched lowercase.
var usedMarkers = []string{"б/у", "б у", "уценка", "бывш", "восстановлен"}

// outOfStockMarkers flag offers with no stock.
var outOfStockMarkers = []string{"нет в наличии", "нет на складе", "out of stock", "недоступен"}

// brandAliases widens brand filter matching to brand families. Keyed by the
// lowercase filter the user types.
var brandAliases = map[string][]string{
	"peugeot":    {"peugeot-citroen", "peugeot", "citroen", "psa"},
	"citroen":    {"peugeot-citroen", "citroen", "peugeot", "psa"},
	"vw":         {"volkswagen", "vw", "vag"},
	"volkswagen": {"volkswagen", "vw", "vag"},
	"mercedes":   {"mercedes", "mercedes-benz", "daimler"},
	"opel":       {"opel", "gm"},
	"hyundai":    {"hyundai", "kia", "mobis"},
	"kia":        {"kia", "hyundai", "mobis"},
}

// ZZap: DevExpress grid, prices as "3 083р.", brand in the third cell.
// Anonymous search. The suggest popup is the disambiguation step.
func ZZap() *Rules {
	return &Rules{
		Site:      "zzap",
		BaseURL:   "https://www.zzap.ru",
		SearchURL: "https://www.zzap.ru/public/search.aspx?rawdata=%s",

		ResultsSelector:        "#ctl00_BodyPlace_SearchGridView_DXMainTable",
		RowSelector:            "#ctl00_BodyPlace_SearchGridView_DXMainTable tr",
		BrandSelector:          "td:nth-of-type(3)",
		DisambiguationSelector: "#ctl00_TopPanel_HeaderPlace_GridLayoutSearchControl_SearchSuggestPopupControl_PWC-1",
		CandidateSelector:      "[id*='SearchSuggestGridView_DXDataRow']",
		PendingMarkers:         []string{"Нет никаких данных", "Одна минута"},
		SkipMarkers:            []string{"Свернуть", "Запрошенный номер"},

		PricePattern: regexp.MustCompile(`(\d[\d\s\x{00a0}]*)\s*р\.`),
		StripPhrases: []string{"Заказ от"},
		MinPrice:     100,
		MaxPrice:     500_000,

		UsedMarkers:       usedMarkers,
		OutOfStockMarkers: outOfStockMarkers,
		BrandAliases:      brandAliases,

		SettleWait:    2 * time.Second,
		ResultTimeout: 15 * time.Second,
	}
}

// STParts: b2b portal behind a login, prices as "1 234,56 ₽", brand in
// td.resultBrand. A part number matching several brands first shows a brand
// chooser page whose candidates link to /search/{brand}/{part}.
func STParts() *Rules {
	return &Rules{
		Site:      "stparts",
		BaseURL:   "https://stparts.ru",
		SearchURL: "https://stparts.ru/search?pcode=%s",

		ResultsSelector:        "#searchResultsTable",
		RowSelector:            "#searchResultsTable tbody tr",
		BrandSelector:          "td.resultBrand",
		DisambiguationSelector: "a[href^='/search/']",
		CandidateSelector:      "a[href^='/search/']",
		NoResultsMarkers:       []string{"не найдено", "ничего не найдено"},
		SkipMarkers:            []string{"resultTitleMain"},

		PricePattern: regexp.MustCompile(`([\d\s\x{00a0}]+[,.]?\d*)\s*₽`),
		StripPhrases: []string{"Цена от", "мин. заказ"},
		MinPrice:     10,
		MaxPrice:     500_000,

		UsedMarkers:       usedMarkers,
		OutOfStockMarkers: outOfStockMarkers,
		BrandAliases:      brandAliases,

		SettleWait:    2 * time.Second,
		ResultTimeout: 10 * time.Second,
	}
}

// Trast: WordPress storefront behind a JS challenge; result blocks carry a
// "Производитель:" label, prices in ₽.
func Trast() *Rules {
	return &Rules{
		Site:      "trast",
		BaseURL:   "https://trast-zapchast.ru",
		SearchURL: "https://trast-zapchast.ru/?s=%s",

		ResultsSelector:  "body",
		RowSelector:      ".product, .search-result, article",
		NoResultsMarkers: []string{"ничего не найдено", "не найдено"},

		BrandPattern: regexp.MustCompile(`Производитель:\s*([^\n₽]+)`),
		PricePattern: regexp.MustCompile(`([\d\s\x{00a0}]{1,15})\s*₽`),
		StripPhrases: []string{"Цена от"},
		MinPrice:     100,
		MaxPrice:     500_000,

		UsedMarkers:       usedMarkers,
		OutOfStockMarkers: outOfStockMarkers,
		BrandAliases:      brandAliases,

		SettleWait:    2 * time.Second,
		ResultTimeout: 20 * time.Second,
	}
}

// AutoVid: WooCommerce shop, product cards, prices in "₽"/"руб".
func AutoVid() *Rules {
	return &Rules{
		Site:      "autovid",
		BaseURL:   "https://auto-vid.com",
		SearchURL: "https://auto-vid.com/?s=%s&post_type=product",

		ResultsSelector:  "ul.products, .products",
		RowSelector:      "ul.products li.product, .products .product, .product-item, article.product",
		PriceSelector:    ".price, .price-new, [class*='price']",
		NoResultsMarkers: []string{"ничего не найдено", "no products"},

		PricePattern: regexp.MustCompile(`([\d\s\x{00a0},.]+)\s*(?:₽|руб)`),
		StripPhrases: []string{"Цена от"},
		MinPrice:     10,
		MaxPrice:     500_000,

		UsedMarkers:       usedMarkers,
		OutOfStockMarkers: outOfStockMarkers,
		BrandAliases:      brandAliases,

		SettleWait:    2 * time.Second,
		ResultTimeout: 15 * time.Second,
	}
}

// AutoTrade: warehouse portal, rows like "Артикул: X, Бренд: Y ... 935 RUB",
// stock counts in pipe-separated cells.
func AutoTrade() *Rules {
	return &Rules{
		Site:      "autotrade",
		BaseURL:   "https://sklad.autotrade.su",
		SearchURL: "https://sklad.autotrade.su/search/?type=article&q=%s",

		ResultsSelector:  "table, .search-results, .result-table, [class*='result']",
		RowSelector:      "table tr",
		NoResultsMarkers: []string{"ничего не найдено", "не найдено"},

		BrandPattern: regexp.MustCompile(`Бренд:\s*([A-Za-zА-Яа-я0-9\-\s]+?)(?:,|\||$)`),
		PricePattern: regexp.MustCompile(`(\d[\d\s\x{00a0},.]*)\s*RUB`),
		StripPhrases: []string{"Заказ от"},
		MinPrice:     10,
		MaxPrice:     500_000,

		UsedMarkers:       usedMarkers,
		OutOfStockMarkers: outOfStockMarkers,
		BrandAliases:      brandAliases,

		SettleWait:    2 * time.Second,
		ResultTimeout: 30 * time.Second,
	}
}

// All returns the five site rule tables keyed by source identifier.
func All() map[string]*Rules {
	return map[string]*Rules{
		"zzap":      ZZap(),
		"stparts":   STParts(),
		"trast":     Trast(),
		"autovid":   AutoVid(),
		"autotrade": AutoTrade(),
	}
}
