package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/config"
	"github.com/meditationastro/medinow-sub000/internal/console"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/email"
	"github.com/meditationastro/medinow-sub000/internal/events"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/kafka"
	"github.com/meditationastro/medinow-sub000/internal/infrastructure/store"
	"github.com/meditationastro/medinow-sub000/internal/notification"
)

// operator is the identity recorded in the audit trail for CLI changes.
var operator = &auth.Identity{UserID: "orderctl", Role: auth.RoleAdmin}

type app struct {
	console *console.Console
	out     io.Writer
}

func openApp(cfg *config.Config, logger zerolog.Logger, out io.Writer) (*app, func(), error) {
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{db.Close}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, producer.Close)
		publisher = producer
	}

	mailer := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	con := console.New(
		store.NewPostgresOrderStore(db),
		notification.NewDispatcher(mailer, cfg.OwnerEmail, logger),
		events.NewEmitter(publisher, logger, nil),
		nil,
		logger,
	)

	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("close")
			}
		}
	}
	return &app{console: con, out: out}, closeFn, nil
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "stats":
		return a.stats(ctx)
	case "show":
		return a.show(ctx, args)
	case "set-status":
		return a.setStatus(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "only orders in this status")
	search := fs.String("q", "", "match customer name, email or order id")
	limit := fs.Int("limit", console.DefaultLimit, "page size")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	orders, err := a.console.List(ctx, operator, console.ListQuery{
		Status: *status,
		Search: *search,
		Limit:  *limit,
		Offset: *offset,
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(a.out)
	table.Header("ID", "Created", "Customer", "Email", "Status", "Payment", "Total")
	for _, o := range orders {
		if err := table.Append(
			o.ID,
			o.CreatedAt.Format(time.DateTime),
			o.Customer.FullName,
			o.Customer.Email,
			string(o.Status),
			string(o.PaymentProvider)+"/"+string(o.PaymentStatus),
			o.Total.StringFixed(2)+" "+o.Currency,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func (a *app) stats(ctx context.Context) error {
	s, err := a.console.Stats(ctx, operator)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(a.out)
	table.Header("Orders", "Pending", "Completed", "Revenue")
	if err := table.Append(
		strconv.Itoa(s.TotalOrders),
		strconv.Itoa(s.PendingOrders),
		strconv.Itoa(s.CompletedOrders),
		s.Revenue.StringFixed(2),
	); err != nil {
		return err
	}
	return table.Render()
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show ORDER_ID")
	}
	d, err := a.console.Get(ctx, operator, args[0])
	if err != nil {
		return err
	}
	o := d.Order

	fmt.Fprintf(a.out, "Order %s\n", o.ID)
	fmt.Fprintf(a.out, "  customer: %s <%s> %s\n", o.Customer.FullName, o.Customer.Email, o.Customer.Phone)
	fmt.Fprintf(a.out, "  status:   %s, payment %s %s\n", o.Status, o.PaymentProvider, o.PaymentStatus)
	if o.Notes != "" {
		fmt.Fprintf(a.out, "  notes:    %s\n", o.Notes)
	}

	items := tablewriter.NewWriter(a.out)
	items.Header("Product", "Version", "Qty", "Unit", "Line")
	for _, it := range o.Items {
		if err := items.Append(it.ProductTitle, it.VersionTitle, strconv.Itoa(it.Quantity), it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2)); err != nil {
			return err
		}
	}
	if err := items.Append("", "", "", "Total", o.Total.StringFixed(2)+" "+o.Currency); err != nil {
		return err
	}
	if err := items.Render(); err != nil {
		return err
	}

	history := tablewriter.NewWriter(a.out)
	history.Header("Changed", "From", "To", "Payment", "Actor", "Source")
	for _, c := range d.History {
		if err := history.Append(c.ChangedAt.Format(time.DateTime), string(c.From), string(c.To), string(c.PaymentStatus), c.Actor, string(c.Source)); err != nil {
			return err
		}
	}
	return history.Render()
}

func (a *app) setStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set-status ORDER_ID STATUS")
	}
	o, err := a.console.UpdateStatus(ctx, operator, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s is now %s\n", o.ID, o.Status)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: delete -yes ORDER_ID")
	}

	if err := a.console.Delete(ctx, operator, fs.Arg(0), *yes); err != nil {
		if order.IsValidation(err) {
			return fmt.Errorf("%w (pass -yes to delete)", err)
		}
		return err
	}
	fmt.Fprintf(a.out, "order %s deleted\n", fs.Arg(0))
	return nil
}

func runToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id (required)")
	mail := fs.String("email", "", "email claim")
	role := fs.String("role", string(auth.RoleAdmin), "ADMIN or USER")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWTSecret, *ttl).GenerateAccessToken(*userID, *mail, auth.Role(strings.ToUpper(*role)))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "# expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func runEvents(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	group := fs.String("group", "orderctl", "consumer group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is not configured")
	}

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, *group, logger)
	defer consumer.Close()

	err := consumer.Consume(ctx, func(ctx context.Context, key, value []byte) error {
		return printEvent(out, value)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(out io.Writer, value []byte) error {
	var e order.Event
	if err := json.Unmarshal(value, &e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	prev := string(e.Previous)
	if prev == "" {
		prev = "-"
	}
	fmt.Fprintf(out, "%s  %-24s %s  %s -> %s  %s\n",
		e.OccurredAt.Format(time.RFC3339), e.Type, e.OrderID, prev, e.Status, e.PaymentStatus)
	return nil
}
