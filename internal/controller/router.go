package controller

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// NewRouter wires every engine operation onto its endpoint.
func NewRouter(h *Handlers) http.Handler {
	router := httprouter.New()

	router.POST("/api/rooms", h.CreateRoom)
	router.GET("/api/rooms", h.ListRooms)
	router.PUT("/api/rooms/:id", h.UpdateRoom)
	router.DELETE("/api/rooms/:id", h.DeleteRoom)

	router.POST("/api/availabilities", h.CreateAvailability)
	router.GET("/api/availabilities", h.ListAvailabilities)
	router.DELETE("/api/availabilities/:id", h.DeleteAvailability)

	router.GET("/api/open-slots", h.ListOpenSlots)
	router.POST("/api/reassign", h.ReassignSlot)
	router.POST("/api/slots/:id/book", h.BookSlot)
	router.POST("/api/slots/:id/cancel", h.CancelBooking)
	router.POST("/api/slots/:id/free", h.FreeSlot)

	router.GET("/api/students/:id/active-slot", h.GetStudentActiveSlot)
	router.GET("/api/instructors/:id/schedule", h.ListInstructorSchedule)

	router.POST("/api/blocked-periods", h.CreateBlockedPeriod)
	router.GET("/api/blocked-periods", h.ListBlockedPeriods)

	router.POST("/api/bans", h.UpsertBan)
	router.GET("/api/bans", h.ListBans)

	return router
}
