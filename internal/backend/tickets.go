package backend

import (
	"context"
	"errors"
	"fmt"
)

func (s *Service) generateTickets(ctx context.Context, in *GenerateTicketsInput) ([]Ticket, error) {
	if _, err := s.authenticate(ctx, in.Credentials, true); err != nil {
		return nil, err
	}

	tickets, err := s.store.CreateTickets(ctx, in.EventID, in.TicketType, in.TicketPrice, in.NumTickets)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(ErrNotFound, "event with id=%d not found", in.EventID)
	}
	if err != nil {
		return nil, fmt.Errorf("create tickets: %w", err)
	}

	s.logger.Info().
		Int64("event_id", in.EventID).
		Str("ticket_type", string(in.TicketType)).
		Int("count", len(tickets)).
		Msg("tickets generated")
	return tickets, nil
}

func (s *Service) getTickets(ctx context.Context, in *GetTicketsInput) ([]Ticket, error) {
	tickets, err := s.store.ListTickets(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if len(tickets) == 0 {
		return nil, newError(ErrNotFound, "no tickets found for event with id=%d", in.EventID)
	}
	return tickets, nil
}

func (s *Service) deleteTicket(ctx context.Context, in *DeleteTicketInput) (Ticket, error) {
	if _, err := s.authenticate(ctx, in.Credentials, true); err != nil {
		return Ticket{}, err
	}

	ticket, err := s.store.DeleteTicket(ctx, in.TicketID)
	if errors.Is(err, ErrNotFound) {
		return Ticket{}, newError(ErrNotFound, "couldn't delete a ticket with id=%d. ticket not found", in.TicketID)
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("delete ticket: %w", err)
	}
	return ticket, nil
}

func (s *Service) availableTickets(ctx context.Context, in *AvailableTicketsInput) (AvailableTicketsOutput, error) {
	count, err := s.store.CountTickets(ctx, in.EventID, in.TicketType)
	if err != nil {
		return AvailableTicketsOutput{}, fmt.Errorf("count tickets: %w", err)
	}
	return AvailableTicketsOutput{Count: count}, nil
}

func (s *Service) purchaseTicket(ctx context.Context, in *PurchaseTicketInput) (PurchaseTicketOutput, error) {
	if _, err := s.authenticate(ctx, in.Credentials, false); err != nil {
		return PurchaseTicketOutput{}, err
	}

	tickets, err := s.store.PurchaseTickets(ctx, Purchase{
		EventID:      in.EventID,
		TicketType:   in.TicketType,
		AttendeeName: in.AttendeeName,
		NumTickets:   in.NumTickets,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return PurchaseTicketOutput{}, newError(ErrNotFound, "event with id=%d not found", in.EventID)
	case errors.Is(err, ErrInsufficientTickets):
		return PurchaseTicketOutput{}, newError(ErrInvalidArgument, "not enough tickets available for type: %s", in.TicketType)
	case err != nil:
		return PurchaseTicketOutput{}, fmt.Errorf("purchase tickets: %w", err)
	}

	// every ticket is charged at the price of the first one sold
	total := tickets[0].TicketPrice * int64(len(tickets))

	s.logger.Info().
		Int64("event_id", in.EventID).
		Str("ticket_type", string(in.TicketType)).
		Int("count", len(tickets)).
		Int64("total_cost", total).
		Msg("tickets purchased")

	return PurchaseTicketOutput{Tickets: tickets, TotalCost: total}, nil
}
