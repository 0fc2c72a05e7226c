package market

// Universe is the fixed set of symbols the poller keeps quotes fresh
// for. One batch request covers the whole list.
var Universe = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "NFLX", "ADBE", "CRM",
	"ORCL", "INTC", "AMD", "PYPL", "UBER", "LYFT", "SNAP", "TWTR", "ZOOM", "SHOP",
	"SQ", "ROKU", "PINS", "DOCU", "ZM", "CRWD", "OKTA", "SNOW", "PLTR", "COIN",
	"GME", "AMC", "BB", "NOK", "SPCE", "NIO", "XPEV", "LI", "BABA", "JD",
	"PDD", "TME", "BILI", "IQ", "VIPS", "WB", "DIDI", "SE", "GRAB", "V",
	"MA", "JPM", "BAC", "WFC", "GS", "MS", "C", "USB", "PNC", "KO",
	"PEP", "WMT", "PG", "JNJ", "UNH", "CVX", "XOM", "HD", "MCD", "DIS",
	"BA", "CAT", "MMM", "IBM", "GE", "F", "GM", "T", "VZ", "COST",
	"TGT", "LOW", "SBUX", "NKE", "LULU", "CZR", "MGM", "LVS", "MRNA", "PFE",
	"ABBV", "BMY", "LLY", "MRK", "GILD", "AMGN", "BIIB", "REGN",
}
