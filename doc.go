// Package mailactivate provides a Go client for the SMS-Activate temporary
// email activation API.
//
// A mailbox is bought for a site (the service that will send the mail) on a
// domain or zone, then polled until the confirmation message arrives. Mailboxes
// can be reactivated for a second message or cancelled.
//
// Basic usage:
//
//	client, err := mailactivate.New("your-api-key")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	domains, err := client.ListDomains(ctx, "instagram.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	activation, err := client.PurchaseMailbox(ctx, "instagram.com", domains[0])
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Use activation.Email on the site, then wait for the message
//	msg, err := client.FetchMessage(ctx, activation,
//	    mailactivate.WithAttempts(12),
//	    mailactivate.WithPollPeriod(5*time.Second),
//	)
//	if errors.Is(err, mailactivate.ErrTimeout) {
//	    client.Cancel(ctx, activation)
//	}
//
// Errors reported by the service match ErrService and, when the service sent a
// known error code, a more specific sentinel such as ErrBadBalance.
package mailactivate
