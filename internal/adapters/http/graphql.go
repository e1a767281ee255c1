package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to the codec service. Objects
// resolve through the default resolver, which reads the domain json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"south_west": &graphql.Field{Type: geoPointType},
			"north_east": &graphql.Field{Type: geoPointType},
		},
	})

	validationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Validation",
		Fields: graphql.Fields{
			"pin":        &graphql.Field{Type: graphql.String},
			"is_valid":   &graphql.Field{Type: graphql.Boolean},
			"message":    &graphql.Field{Type: graphql.String},
			"normalized": &graphql.Field{Type: graphql.String},
			"reason":     &graphql.Field{Type: graphql.String},
		},
	})

	encodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Encoded",
		Fields: graphql.Fields{
			"pin":       &graphql.Field{Type: graphql.String},
			"canonical": &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	decodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Decoded",
		Fields: graphql.Fields{
			"pin":       &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
			"bounds":    &graphql.Field{Type: boundsType},
		},
	})

	distanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Distance",
		Fields: graphql.Fields{
			"start_pin":  &graphql.Field{Type: graphql.String},
			"end_pin":    &graphql.Field{Type: graphql.String},
			"meters":     &graphql.Field{Type: graphql.Float},
			"kilometers": &graphql.Field{Type: graphql.Float},
			"formatted":  &graphql.Field{Type: graphql.String},
		},
	})

	nearestType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Nearest",
		Fields: graphql.Fields{
			"reference_pin":   &graphql.Field{Type: graphql.String},
			"nearest":         &graphql.Field{Type: graphql.String},
			"index":           &graphql.Field{Type: graphql.Int},
			"distance_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"validate": &graphql.Field{
				Type:        validationType,
				Description: "Check whether a DIGIPIN is well formed",
				Args: graphql.FieldConfigArgument{
					"pin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Digipin.Validate(p.Context, p.Args["pin"].(string)), nil
				},
			},
			"encode": &graphql.Field{
				Type:        encodeType,
				Description: "DIGIPIN of a coordinate pair",
				Args: graphql.FieldConfigArgument{
					"latitude":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"longitude": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["latitude"].(float64)
					lon := p.Args["longitude"].(float64)
					return deps.Digipin.Encode(p.Context, lat, lon)
				},
			},
			"decode": &graphql.Field{
				Type:        decodeType,
				Description: "Center and bounds of a DIGIPIN",
				Args: graphql.FieldConfigArgument{
					"pin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Digipin.Decode(p.Context, p.Args["pin"].(string))
				},
			},
			"distance": &graphql.Field{
				Type:        distanceType,
				Description: "Great-circle distance between two DIGIPIN centers",
				Args: graphql.FieldConfigArgument{
					"start_pin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"end_pin":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Digipin.Distance(p.Context, p.Args["start_pin"].(string), p.Args["end_pin"].(string))
				},
			},
			"nearest": &graphql.Field{
				Type:        nearestType,
				Description: "Candidate closest to a reference DIGIPIN",
				Args: graphql.FieldConfigArgument{
					"reference_pin": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"candidates":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["candidates"].([]interface{})
					candidates := make([]string, 0, len(raw))
					for _, v := range raw {
						if s, ok := v.(string); ok {
							candidates = append(candidates, s)
						}
					}
					return deps.Digipin.Nearest(p.Context, p.Args["reference_pin"].(string), candidates)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
