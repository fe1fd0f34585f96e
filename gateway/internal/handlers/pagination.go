package handlers

import (
	"net/http"

	"github.com/JoaoG250/micro-do/common/contracts"
	"github.com/JoaoG250/micro-do/common/httputil"
)

func pageRequest(r *http.Request) contracts.PageRequest {
	p := httputil.ParsePagination(r, contracts.DefaultPageSize, contracts.MaxPageSize)
	return contracts.PageRequest{Page: p.Page, Limit: p.Limit}
}
