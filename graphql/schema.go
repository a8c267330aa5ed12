package graphql

import (
	"errors"

	"ParkMe/control"
	"ParkMe/model"

	"github.com/graphql-go/graphql"
	log "github.com/sirupsen/logrus"
)

var errInternal = errors.New("internal server error")

// 定义GraphQL中的停车票类型，出场字段在票关闭前为 null
var ticketType = graphql.NewObject(
	graphql.ObjectConfig{
		Name: "Ticket",
		Fields: graphql.Fields{
			"ticketId":     &graphql.Field{Type: graphql.String},
			"plate":        &graphql.Field{Type: graphql.String},
			"parkingLotId": &graphql.Field{Type: graphql.String},
			"entryTs":      &graphql.Field{Type: graphql.Int},
			"status":       &graphql.Field{Type: graphql.String},
			"exitTs":       &graphql.Field{Type: graphql.Int},
			"durationMin":  &graphql.Field{Type: graphql.Int},
			// 金额用字符串，保留两位小数
			"chargeUsd": &graphql.Field{Type: graphql.String},
		},
	},
)

// ticketResult 转成 GraphQL 返回的 map
func ticketResult(t *model.Ticket) map[string]interface{} {
	result := map[string]interface{}{
		"ticketId":     t.TicketID,
		"plate":        t.Plate,
		"parkingLotId": t.ParkingLotID,
		"entryTs":      t.EntryTs,
		"status":       string(t.Status),
	}
	if t.ExitTs != nil {
		result["exitTs"] = *t.ExitTs
	}
	if t.DurationMin != nil {
		result["durationMin"] = *t.DurationMin
	}
	if t.ChargeUsd != nil {
		result["chargeUsd"] = t.ChargeUsd.StringFixed(2)
	}
	return result
}

// resolveError 内部错误只记日志，不把细节返回给客户端
func resolveError(err error) error {
	if errors.Is(err, control.ErrInternal) {
		log.WithError(err).Error("graphql resolve failed")
		return errInternal
	}
	return err
}

// NewGraphQLSchema 创建新的GraphQL schema
// 查询：ticket、openTickets；变更：entry、exit
func NewGraphQLSchema(entry *control.EntryService, exit *control.ExitService, query *control.QueryService) (graphql.Schema, error) {
	queryType := graphql.NewObject(
		graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"ticket": &graphql.Field{
					Type: ticketType,
					Args: graphql.FieldConfigArgument{
						"ticketId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						ticketID, _ := p.Args["ticketId"].(string)
						ticket, err := query.GetTicket(p.Context, ticketID)
						if err != nil {
							return nil, resolveError(err)
						}
						return ticketResult(ticket), nil
					},
				},
				"openTickets": &graphql.Field{
					Type: graphql.NewList(ticketType),
					Args: graphql.FieldConfigArgument{
						"plate": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						plate, _ := p.Args["plate"].(string)
						tickets, err := query.OpenTickets(p.Context, plate)
						if err != nil {
							return nil, resolveError(err)
						}
						results := make([]map[string]interface{}, 0, len(tickets))
						for i := range tickets {
							results = append(results, ticketResult(&tickets[i]))
						}
						return results, nil
					},
				},
			},
		},
	)

	mutationType := graphql.NewObject(
		graphql.ObjectConfig{
			Name: "Mutation",
			Fields: graphql.Fields{
				"entry": &graphql.Field{
					Type: ticketType,
					Args: graphql.FieldConfigArgument{
						"plate":        &graphql.ArgumentConfig{Type: graphql.String},
						"parkingLotId": &graphql.ArgumentConfig{Type: graphql.String},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						plate, _ := p.Args["plate"].(string)
						parkingLotID, _ := p.Args["parkingLotId"].(string)
						ticket, err := entry.CreateTicket(p.Context, plate, parkingLotID)
						if err != nil {
							return nil, resolveError(err)
						}
						return ticketResult(ticket), nil
					},
				},
				"exit": &graphql.Field{
					Type: ticketType,
					Args: graphql.FieldConfigArgument{
						"ticketId": &graphql.ArgumentConfig{Type: graphql.String},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						ticketID, _ := p.Args["ticketId"].(string)
						ticket, err := exit.CloseTicket(p.Context, ticketID)
						if err != nil {
							return nil, resolveError(err)
						}
						return ticketResult(ticket), nil
					},
				},
			},
		},
	)

	return graphql.NewSchema(
		graphql.SchemaConfig{
			Query:    queryType,
			Mutation: mutationType,
		},
	)
}
