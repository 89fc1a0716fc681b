package availability

type AvailabilityQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}
