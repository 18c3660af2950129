package dto

// ListParams defines the query parameters shared by all list endpoints.
// Pagination is keyset based: pass the nextToken from the previous page.
type ListParams struct {
	Limit     int     `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}
