package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type ClientInput struct {
	BusinessID *int64  `json:"business_id"`
	Name       string  `json:"name"`
	Email      *string `json:"email"`
}

func createClient(ctx context.Context, q querier, userID int64, in *ClientInput) (*Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errInvalidInput("client name is required")
	}
	if in.BusinessID != nil {
		if _, err := fetchOwnedBusiness(ctx, q, *in.BusinessID, userID); err != nil {
			return nil, err
		}
	}
	c := Client{UserID: userID, BusinessID: in.BusinessID, Name: in.Name, Email: in.Email}
	err := q.QueryRowContext(ctx, `
		INSERT INTO clients (user_id, business_id, name, email)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		c.UserID, c.BusinessID, c.Name, c.Email).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}
	return &c, nil
}

// resolveBusinessClient returns a catalog client usable on a quote or
// invoice for the given business. A project-only "soft" client (no
// business) gets promoted: an existing catalog client is reused when its
// name or email matches, otherwise one is created from the soft record.
func resolveBusinessClient(ctx context.Context, q querier, userID, businessID, clientID int64) (*Client, error) {
	client, err := fetchOwnedClient(ctx, q, clientID, userID)
	if err != nil {
		return nil, err
	}
	if client.BusinessID != nil {
		if *client.BusinessID != businessID {
			return nil, errScopeCoherence("client belongs to a different business")
		}
		return client, nil
	}

	// Soft client: reuse a catalog match by name or email before creating.
	var existing Client
	err = q.QueryRowContext(ctx, `
		SELECT id, user_id, business_id, name, email, created_at
		FROM clients
		WHERE business_id = $1 AND (LOWER(name) = LOWER($2) OR (email IS NOT NULL AND email = $3))
		ORDER BY id LIMIT 1`,
		businessID, client.Name, client.Email).Scan(
		&existing.ID, &existing.UserID, &existing.BusinessID, &existing.Name,
		&existing.Email, &existing.CreatedAt)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up catalog client: %w", err)
	}

	promoted := Client{UserID: userID, Name: client.Name, Email: client.Email}
	promoted.BusinessID = &businessID
	err = q.QueryRowContext(ctx, `
		INSERT INTO clients (user_id, business_id, name, email)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		promoted.UserID, promoted.BusinessID, promoted.Name, promoted.Email).Scan(
		&promoted.ID, &promoted.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to promote client: %w", err)
	}
	return &promoted, nil
}

func listClients(ctx context.Context, q querier, userID int64, scope scopeFilter) ([]Client, error) {
	var where strings.Builder
	args := []any{userID}
	scope.apply(&where, &args)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, business_id, name, email, created_at
		FROM clients WHERE user_id = $1`+where.String()+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.BusinessID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

type ServiceInput struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	VATRate   string `json:"vat_rate"`
}

func createService(ctx context.Context, q querier, userID, businessID int64, in *ServiceInput) (*Service, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errInvalidInput("service name is required")
	}
	if _, err := fetchOwnedBusiness(ctx, q, businessID, userID); err != nil {
		return nil, err
	}
	unitPrice, err := parseMoney(in.UnitPrice, "unit_price")
	if err != nil {
		return nil, err
	}
	if unitPrice.IsNegative() {
		return nil, errInvalidInput("unit price must not be negative")
	}
	vatRate, err := parseMoney(in.VATRate, "vat_rate")
	if err != nil {
		return nil, err
	}
	if vatRate.IsNegative() {
		return nil, errInvalidInput("vat rate must not be negative")
	}

	s := Service{BusinessID: businessID, Name: in.Name, UnitPrice: unitPrice, VATRate: vatRate}
	err = q.QueryRowContext(ctx, `
		INSERT INTO services (business_id, name, unit_price, vat_rate)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		s.BusinessID, s.Name, s.UnitPrice, s.VATRate).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert service: %w", err)
	}
	return &s, nil
}

func listServices(ctx context.Context, q querier, userID, businessID int64) ([]Service, error) {
	if _, err := fetchOwnedBusiness(ctx, q, businessID, userID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, business_id, name, unit_price, vat_rate, created_at
		FROM services WHERE business_id = $1 ORDER BY name`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	services := make([]Service, 0)
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.UnitPrice, &s.VATRate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
