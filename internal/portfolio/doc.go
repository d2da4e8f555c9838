// Package portfolio computes risk analytics over a user's holdings.
//
// The total portfolio value series is built from one year of daily closes
// per held symbol (close × quantity, summed per day with missing days
// counted as zero). From it the package derives:
//
//   - Sharpe ratio: annualized mean/std of daily excess returns
//     (risk-free 1%/year over 252 trading days, sample std)
//   - Value at risk: 5% quantile of daily returns, linearly interpolated
//   - Max drawdown: worst peak-to-trough decline of the value series
//
// All three are percentages or ratios rounded to two decimals.
package portfolio
