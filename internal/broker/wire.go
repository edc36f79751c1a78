package broker

type wireProfile struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

type wireHolding struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	ISIN          string  `json:"isin"`
	Quantity      int     `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	PnL           float64 `json:"pnl"`
}

type wirePosition struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Product       string  `json:"product"`
	Quantity      int     `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	PnL           float64 `json:"pnl"`
}

type wirePositions struct {
	Net []wirePosition `json:"net"`
	Day []wirePosition `json:"day"`
}

type wireMargins struct {
	Equity wireSegmentMargins `json:"equity"`
}

type wireSegmentMargins struct {
	Net       float64 `json:"net"`
	Available struct {
		Cash float64 `json:"cash"`
	} `json:"available"`
	Utilised struct {
		Debits float64 `json:"debits"`
	} `json:"utilised"`
}

type wireSession struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token"`
	LoginTime   string `json:"login_time"`
}
