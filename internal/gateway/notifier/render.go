package notifier

import (
	"fmt"
	"time"

	"stacker/internal/agent"
)

// 中文说明：
// 把 agent 事件渲染成统一的 Telegram 推送。决策事件只推方向性的（买/卖），
// HOLD 噪音太大，不打扰。

// RenderTradeOpened 渲染开仓通知。
func RenderTradeOpened(symbol string, o agent.TradeOpened) string {
	icon := "📈"
	if o.Side == "short" {
		icon = "📉"
	}
	title := fmt.Sprintf("开仓 %s %s", symbol, o.Side)
	if o.External {
		title += "（外部）"
	}
	msg := StructuredMessage{
		Icon:  icon,
		Title: title,
		Sections: []MessageSection{{
			Lines: []string{
				fmt.Sprintf("入场价: %.1f", o.EntryPrice),
				fmt.Sprintf("保证金: %d sats", o.MarginSats),
				fmt.Sprintf("杠杆: %dx", o.Leverage),
				fmt.Sprintf("数量: %.8f", o.Quantity),
			},
		}},
		Timestamp: o.OpenedAt,
	}
	return msg.RenderMarkdown()
}

// RenderTradeClosed 渲染平仓/结算通知。
func RenderTradeClosed(symbol string, c agent.TradeClosed) string {
	icon := "✅"
	if c.RealizedPnLSats < 0 {
		icon = "🔻"
	}
	title := fmt.Sprintf("平仓 %s %s", symbol, c.Side)
	if c.External {
		title = fmt.Sprintf("外部平仓 %s %s", symbol, c.Side)
	}
	msg := StructuredMessage{
		Icon:  icon,
		Title: title,
		Sections: []MessageSection{{
			Lines: []string{
				fmt.Sprintf("入场价: %.1f", c.EntryPrice),
				fmt.Sprintf("出场价: %.1f", c.ExitPrice),
				fmt.Sprintf("已实现盈亏: %d sats", c.RealizedPnLSats),
			},
		}},
		Timestamp: c.ClosedAt,
	}
	return msg.RenderMarkdown()
}

// RenderDecision 渲染方向性决策。HOLD 返回空串表示不推送。
func RenderDecision(symbol string, d agent.DecisionEvent) string {
	if d.Action != "buy" && d.Action != "sell" {
		return ""
	}
	msg := StructuredMessage{
		Icon:  "🤖",
		Title: fmt.Sprintf("决策 %s %s（置信度 %.2f）", symbol, d.Action, d.Confidence),
		Sections: []MessageSection{{
			Title: "依据",
			Lines: d.Reasons,
		}},
		Footer:    fmt.Sprintf("价格 %.1f", d.Price),
		Timestamp: d.At,
	}
	return msg.RenderMarkdown()
}

// RenderPanic 渲染紧急平仓相关消息。
func RenderPanic(symbol, message string, at time.Time) string {
	msg := StructuredMessage{
		Icon:      "🚨",
		Title:     "紧急平仓 " + symbol,
		Sections:  []MessageSection{{Lines: []string{message}}},
		Timestamp: at,
	}
	return msg.RenderMarkdown()
}
