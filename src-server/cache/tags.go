package cache

import "fmt"

// Tag names shared by the reads that populate entries and the writes that
// drop them.
const EventCategoriesTag = "event-categories"

func EventTag(eventID string) string {
	return fmt.Sprintf("event-%s", eventID)
}

func CategoryEventsTag(categoryID string) string {
	return fmt.Sprintf("category-events-%s", categoryID)
}

func UserRegistrationsTag(userID string) string {
	return fmt.Sprintf("user-registrations-%s", userID)
}

func RegistrationTag(userID string, eventID string) string {
	return fmt.Sprintf("registration-%s-%s", userID, eventID)
}
