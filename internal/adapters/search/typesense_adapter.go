package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	tsclient "github.com/zatekoja/facilitysearch/internal/infrastructure/clients/typesense"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// TypesenseAdapter serves autocomplete suggestions from Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements SuggestionRepository
var _ repositories.SuggestionRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts the suggestion document of a facility
func (a *TypesenseAdapter) Index(ctx context.Context, facility *entities.Facility) error {
	_, err := a.client.Client().Collection(tsclient.SuggestionsCollection).Documents().Upsert(ctx, suggestionDocument(facility))
	if err != nil {
		return apperrors.NewExternalError(fmt.Sprintf("failed to index facility %d", facility.ID), err)
	}
	return nil
}

// Delete removes a facility from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id int64) error {
	_, err := a.client.Client().Collection(tsclient.SuggestionsCollection).Document(documentID(id)).Delete(ctx)
	if err != nil {
		return apperrors.NewExternalError(fmt.Sprintf("failed to delete facility %d from index", id), err)
	}
	return nil
}

// FindByNamePrefix returns facilities whose name matches the keyword, best rated first
func (a *TypesenseAdapter) FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]entities.Suggestion, error) {
	result, err := a.client.Client().Collection(tsclient.SuggestionsCollection).Documents().Search(ctx, suggestionSearchParams(keyword, limit))
	if err != nil {
		return nil, apperrors.NewExternalError("failed to search suggestions", err)
	}

	suggestions := []entities.Suggestion{}
	if result.Hits == nil {
		return suggestions, nil
	}

	seen := make(map[int64]struct{})
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		suggestion, ok := parseSuggestion(*hit.Document)
		if !ok {
			continue
		}
		if _, dup := seen[suggestion.ID]; dup {
			continue
		}
		seen[suggestion.ID] = struct{}{}
		suggestions = append(suggestions, suggestion)
		if len(suggestions) == limit {
			break
		}
	}

	return suggestions, nil
}

func suggestionSearchParams(keyword string, limit int) *api.SearchCollectionParams {
	// Exact prefix matches only: no typo correction and no dropped tokens.
	return &api.SearchCollectionParams{
		Q:                   pointer.String(keyword),
		QueryBy:             pointer.String("name"),
		SortBy:              pointer.String("rating:desc,_text_match:desc"),
		PerPage:             pointer.Int(limit),
		Prefix:              pointer.String("true"),
		NumTypos:            pointer.String("0"),
		DropTokensThreshold: pointer.Int(0),
	}
}

func suggestionDocument(facility *entities.Facility) map[string]interface{} {
	return map[string]interface{}{
		"id":            documentID(facility.ID),
		"facility_id":   facility.ID,
		"name":          facility.Name,
		"rating":        facility.RatingOrZero(),
		"facility_type": string(facility.FacilityType),
	}
}

// parseSuggestion reads a hit document. Numbers arrive as float64 from JSON.
func parseSuggestion(doc map[string]interface{}) (entities.Suggestion, bool) {
	var suggestion entities.Suggestion

	switch id := doc["facility_id"].(type) {
	case float64:
		suggestion.ID = int64(id)
	case int64:
		suggestion.ID = id
	default:
		return suggestion, false
	}

	name, ok := doc["name"].(string)
	if !ok || name == "" {
		return suggestion, false
	}
	suggestion.Name = name

	if rating, ok := doc["rating"].(float64); ok {
		suggestion.Rating = rating
	}
	return suggestion, true
}

func documentID(id int64) string {
	return strconv.FormatInt(id, 10)
}
