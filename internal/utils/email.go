package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"qarte_back_end/internal/models"
)

// SMTPMailer branche l'envoi des reçus de commande sur le SMTP configuré.
// Implémente engine.Mailer.
type SMTPMailer struct{}

// SendNewOrderEmail envoie le reçu d'une nouvelle commande au restaurateur.
func (SMTPMailer) SendNewOrderEmail(to string, restaurant *models.Restaurant, order *models.Order) error {
	msg := mail.NewMsg()

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@qarte.fr"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("🧾 Nouvelle commande %s - %s", order.OrderNumber, restaurant.Name))
	msg.SetBodyString(mail.TypeTextHTML, generateNewOrderHTML(restaurant, order))

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// generateNewOrderHTML génère le HTML du reçu de commande
func generateNewOrderHTML(restaurant *models.Restaurant, order *models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
			</tr>`, item.Name, item.Quantity, euros(item.Price), euros(item.Price*int64(item.Quantity)))
	}

	table := order.TableID
	if table == "" {
		table = "—"
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Nouvelle commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Nouvelle commande %s</h2>
		<p>Table : %s</p>

		<h3>Détails de la commande</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Plat</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
		</table>

		<p style="font-size: 18px;"><strong>Montant total : %s</strong></p>
		<p style="color: #666; font-size: 13px;">Reçu automatique Qarte pour %s.</p>
	</div>
</body>
</html>`, order.OrderNumber, table, itemsHTML, euros(order.TotalAmount), restaurant.Name)
}

// euros formate un montant en centimes pour l'affichage uniquement :
// les calculs restent en entiers.
func euros(cents int64) string {
	return fmt.Sprintf("%d,%02d€", cents/100, cents%100)
}
