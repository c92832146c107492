package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/storefront-bot/internal/config"
	"github.com/rl1809/storefront-bot/internal/core/domain"
)

const (
	// Main-menu button labels. The gateway maps them back to operations.
	MenuPlans   = "View plans"
	MenuStatus  = "My account"
	MenuSupport = "Support"

	// BuyPrefix prefixes the option data of plan purchase buttons.
	BuyPrefix = "buy_"

	timeLayout = "2006-01-02 15:04:05"
	separator  = "--------------------\n"
)

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escape neutralizes Markdown control characters in user or panel supplied text.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func money(amount int64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%d %s", amount, currency)
}

func plain(text string) domain.Reply {
	return domain.Reply{Text: text, MainMenu: true}
}

func markdown(text string) domain.Reply {
	return domain.Reply{Text: text, Markdown: true, MainMenu: true}
}

func operatorNotification(order domain.PendingOrder, currency string) domain.Reply {
	var b strings.Builder
	b.WriteString("🔔 *New order awaiting payment* 🔔\n\n")
	fmt.Fprintf(&b, "Customer: %s (ID: `%d`)\n", escape(order.RequesterDisplayName), order.RequesterID)
	fmt.Fprintf(&b, "Plan: *%s*\n", escape(order.PlanName))
	fmt.Fprintf(&b, "Amount: *%s*\n", escape(money(order.PlanPrice, currency)))
	fmt.Fprintf(&b, "To confirm payment use `/confirm_payment %d`", order.RequesterID)
	return domain.Reply{Text: b.String(), Markdown: true}
}

func credentialsMessage(acc domain.ProvisionedAccount) domain.Reply {
	var b strings.Builder
	b.WriteString("Congratulations! Your account is active 🎉\n\n")
	fmt.Fprintf(&b, "Connection details for plan *%s*:\n", escape(acc.PlanName))
	fmt.Fprintf(&b, "Username: `%s`\n", acc.Username)
	fmt.Fprintf(&b, "Password: `%s`\n", acc.Password)
	b.WriteString("Please keep these details somewhere safe.")
	return markdown(b.String())
}

func cancelledNotice(order domain.PendingOrder, reason string) domain.Reply {
	return markdown(fmt.Sprintf("Your pending order for plan *%s* was %s. You can pick a plan again at any time with /plans.",
		escape(order.PlanName), reason))
}

func paymentInstructions(plan domain.Plan, pay config.PaymentInstructions) domain.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "To buy plan *%s* for *%s*, please transfer the amount to:\n\n",
		escape(plan.Name), escape(money(plan.Price, pay.Currency)))
	fmt.Fprintf(&b, "Card number: `%s`\n", pay.CardNumber)
	fmt.Fprintf(&b, "Bank: %s\n", escape(pay.BankName))
	fmt.Fprintf(&b, "Account holder: %s\n\n", escape(pay.AccountHolder))
	fmt.Fprintf(&b, "After paying, send the *payment receipt* to %s so your account can be activated.",
		escape(pay.Contact))
	return markdown(b.String())
}

func planCatalog(plans []domain.Plan, currency string) domain.Reply {
	var b strings.Builder
	b.WriteString("Available plans:\n\n")
	options := make([]domain.Option, 0, len(plans))
	for _, p := range plans {
		fmt.Fprintf(&b, "Name: %s\n", p.Name)
		fmt.Fprintf(&b, "Volume: %d MB\n", p.VolumeMB)
		fmt.Fprintf(&b, "Duration: %d days\n", p.DurationDays)
		fmt.Fprintf(&b, "Price: %s\n", money(p.Price, currency))
		b.WriteString(separator)
		options = append(options, domain.Option{
			Label: fmt.Sprintf("Buy %s (%s)", p.Name, money(p.Price, currency)),
			Data:  fmt.Sprintf("%s%d", BuyPrefix, p.ID),
		})
	}
	return domain.Reply{Text: b.String(), Options: options}
}

func accountStatus(view StatusView) domain.Reply {
	acc := view.Account
	planName := view.PlanName
	if planName == "" {
		planName = "unknown"
	}
	var b strings.Builder
	b.WriteString("Your account status:\n\n")
	fmt.Fprintf(&b, "Username: `%s`\n", acc.Username)
	fmt.Fprintf(&b, "Plan: %s\n", escape(planName))
	fmt.Fprintf(&b, "Used volume: %.2f GB\n", acc.UsedVolumeMB/1024)
	fmt.Fprintf(&b, "Remaining volume: %.2f GB\n", acc.RemainingVolumeMB/1024)
	fmt.Fprintf(&b, "Remaining days: %d\n", acc.RemainingDays)
	fmt.Fprintf(&b, "Expires: %s\n", escape(orNA(acc.ExpiryDate)))
	fmt.Fprintf(&b, "Status: %s\n", escape(orNA(acc.Status)))
	return markdown(b.String())
}

func pendingStatus(order domain.PendingOrder) domain.Reply {
	return markdown(fmt.Sprintf("You have a pending order for plan *%s*.\n"+
		"Please complete the payment and send the receipt to the operator to activate your account.\n"+
		"To see the payment instructions again, open /plans and pick the plan.",
		escape(order.PlanName)))
}

func pendingOrdersList(orders []domain.PendingOrder, currency string) domain.Reply {
	var b strings.Builder
	b.WriteString("*Pending orders:*\n\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "Customer: %s (ID: `%d`)\n", escape(o.RequesterDisplayName), o.RequesterID)
		fmt.Fprintf(&b, "Plan: *%s* (%s)\n", escape(o.PlanName), escape(money(o.PlanPrice, currency)))
		fmt.Fprintf(&b, "Created: %s\n", o.CreatedAt.Format(timeLayout))
		fmt.Fprintf(&b, "Status: %s\n", o.Status)
		fmt.Fprintf(&b, "Confirm: `/confirm_payment %d`\n", o.RequesterID)
		b.WriteString(separator)
	}
	return domain.Reply{Text: b.String(), Markdown: true}
}

func eventHistory(requesterID int64, events []domain.OrderEvent) domain.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "*Order history for* `%d`:\n\n", requesterID)
	for _, ev := range events {
		fmt.Fprintf(&b, "%s  %s", ev.At.UTC().Format(time.DateTime), escape(string(ev.Kind)))
		if ev.Detail != "" {
			fmt.Fprintf(&b, " (%s)", escape(ev.Detail))
		}
		b.WriteString("\n")
	}
	return domain.Reply{Text: b.String(), Markdown: true}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
