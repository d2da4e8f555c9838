// Package server exposes the relay over HTTP with gin.
//
// Routes:
//
//	GET    /                       welcome message
//	GET    /health                 component status
//	GET    /metrics                Prometheus metrics (when enabled)
//	GET    /stream/prices          WebSocket price stream
//	GET    /quotes?symbol=         latest quote
//	GET    /quotes/search/:symbol  best symbol match
//	GET    /holdings?user_id=      list holdings
//	POST   /holdings?user_id=      create holding
//	GET    /holdings/:id           get holding
//	PUT    /holdings/:id           update holding
//	DELETE /holdings/:id           delete holding
//	GET    /portfolio/analytics    risk analytics for user_id
//
// Stream protocol (client → server):
//
//	{"action":"subscribe","symbols":["AAPL","MSFT"]}
//	{"action":"unsubscribe","symbols":["MSFT"]}
//
// Server → client:
//
//	{"type":"ready","clientId":"..."}
//	{"type":"trade","symbol":"AAPL","price":189.5,"volume":100,"timestamp":1700000000000,"source":"finnhub"}
//	{"type":"error","message":"..."}
package server
