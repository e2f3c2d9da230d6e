package backend

import (
	"context"
	"errors"
	"fmt"
)

func (s *Service) addEvent(ctx context.Context, in *AddEventInput) (Event, error) {
	if _, err := s.authenticate(ctx, in.Credentials, true); err != nil {
		return Event{}, err
	}

	start, end, err := parseEventDates(in.EventFields)
	if err != nil {
		return Event{}, err
	}

	event, err := s.store.CreateEvent(ctx, Event{
		EventName: in.EventName,
		Details:   in.Details,
		Location:  in.Location,
		StartDate: start,
		EndDate:   end,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}

	event.Attendees = []Attendee{}
	s.logger.Info().Int64("event_id", event.ID).Msg("event added")
	return event, nil
}

func (s *Service) updateEvent(ctx context.Context, in *UpdateEventInput) (Event, error) {
	if _, err := s.authenticate(ctx, in.Credentials, true); err != nil {
		return Event{}, err
	}

	existing, err := s.lookupEvent(ctx, in.EventID)
	if err != nil {
		return Event{}, err
	}

	start, end, err := parseEventDates(in.EventFields)
	if err != nil {
		return Event{}, err
	}

	existing.EventName = in.EventName
	existing.Details = in.Details
	existing.Location = in.Location
	existing.StartDate = start
	existing.EndDate = end

	event, err := s.store.UpdateEvent(ctx, existing)
	if errors.Is(err, ErrNotFound) {
		return Event{}, newError(ErrNotFound, "couldn't update an event with id=%d. event not found", in.EventID)
	}
	if err != nil {
		return Event{}, fmt.Errorf("update event: %w", err)
	}
	return s.withAttendees(ctx, event)
}

func (s *Service) deleteEvent(ctx context.Context, in *DeleteEventInput) (Event, error) {
	if _, err := s.authenticate(ctx, in.Credentials, true); err != nil {
		return Event{}, err
	}

	if in.EventID == nil {
		return Event{}, newError(ErrInvalidArgument, "event id must be provided")
	}

	event, err := s.store.DeleteEvent(ctx, *in.EventID)
	if errors.Is(err, ErrNotFound) {
		return Event{}, newError(ErrNotFound, "couldn't delete an event with id=%d. event not found", *in.EventID)
	}
	if err != nil {
		return Event{}, fmt.Errorf("delete event: %w", err)
	}

	event.Attendees = []Attendee{}
	s.logger.Info().Int64("event_id", event.ID).Msg("event deleted")
	return event, nil
}

func (s *Service) getEvent(ctx context.Context, in *GetEventInput) (Event, error) {
	event, err := s.lookupEvent(ctx, in.EventID)
	if err != nil {
		return Event{}, err
	}
	return s.withAttendees(ctx, event)
}

func (s *Service) getEventByName(ctx context.Context, in *GetEventByNameInput) (Event, error) {
	event, err := s.store.GetEventByName(ctx, in.EventName)
	if errors.Is(err, ErrNotFound) {
		return Event{}, newError(ErrNotFound, "event with name '%s' not found", in.EventName)
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event by name: %w", err)
	}
	return s.withAttendees(ctx, event)
}

func (s *Service) getEvents(ctx context.Context, _ *struct{}) ([]Event, error) {
	return s.listEvents(ctx, EventFilter{})
}

func (s *Service) getUpcomingEvents(ctx context.Context, _ *struct{}) ([]Event, error) {
	today := s.today()
	return s.listEvents(ctx, EventFilter{StartsOnOrAfter: &today})
}

func (s *Service) getPastEvents(ctx context.Context, _ *struct{}) ([]Event, error) {
	today := s.today()
	return s.listEvents(ctx, EventFilter{EndsBefore: &today})
}

func (s *Service) listEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]Event, 0, len(events))
	for _, event := range events {
		event, err := s.withAttendees(ctx, event)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *Service) addAttendee(ctx context.Context, in *AddAttendeeInput) (Attendee, error) {
	if _, err := s.authenticate(ctx, in.Credentials, false); err != nil {
		return Attendee{}, err
	}

	attendee, err := s.store.AddAttendee(ctx, in.EventID, in.AttendeeName)
	if errors.Is(err, ErrNotFound) {
		return Attendee{}, newError(ErrNotFound, "event with id=%d not found", in.EventID)
	}
	if err != nil {
		return Attendee{}, fmt.Errorf("add attendee: %w", err)
	}
	return attendee, nil
}

func (s *Service) getAttendees(ctx context.Context, in *GetAttendeesInput) ([]Attendee, error) {
	if _, err := s.lookupEvent(ctx, in.EventID); err != nil {
		return nil, err
	}

	attendees, err := s.store.ListAttendees(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if attendees == nil {
		attendees = []Attendee{}
	}
	return attendees, nil
}

func (s *Service) lookupEvent(ctx context.Context, id int64) (Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Event{}, newError(ErrNotFound, "event with id=%d not found", id)
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *Service) withAttendees(ctx context.Context, event Event) (Event, error) {
	attendees, err := s.store.ListAttendees(ctx, event.ID)
	if err != nil {
		return Event{}, fmt.Errorf("list attendees: %w", err)
	}
	if attendees == nil {
		attendees = []Attendee{}
	}
	event.Attendees = attendees
	return event, nil
}

func parseEventDates(f EventFields) (Date, Date, error) {
	start, err := ParseDate(f.StartDate)
	if err != nil {
		return Date{}, Date{}, newError(ErrInvalidArgument, "invalid start date format: %v", err)
	}
	end, err := ParseDate(f.EndDate)
	if err != nil {
		return Date{}, Date{}, newError(ErrInvalidArgument, "invalid end date format: %v", err)
	}
	if end.Before(start.Time) {
		return Date{}, Date{}, newError(ErrInvalidArgument, "end date must not be before start date")
	}
	return start, end, nil
}
