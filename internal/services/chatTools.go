package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
)

const (
	searchDoctorLimit         = 10
	activeDoctorsLimit        = 20
	doctorSpecializationLimit = 10
)

// toolFunc runs one tool. It never fails: lookups that go wrong come back
// as an empty list or nil, which the model sees as "nothing found".
type toolFunc func(ctx context.Context, args map[string]any) any

type chatTool struct {
	definition llms.Tool
	run        toolFunc
}

// toolbox holds the functions the model may call during a chat turn.
type toolbox struct {
	hospitals repositories.HospitalRepository
	doctors   repositories.DoctorRepository
	tools     map[string]chatTool
	order     []string
}

func newToolbox(hospitals repositories.HospitalRepository, doctors repositories.DoctorRepository) *toolbox {
	tb := &toolbox{hospitals: hospitals, doctors: doctors, tools: map[string]chatTool{}}

	tb.register("searchDoctor",
		"Search for doctors by name in the hospital database. Use this when user asks about specific doctor availability or wants to find a doctor by name.",
		objectSchema(map[string]any{
			"doctorName": stringProperty("The name of the doctor to search for (can be partial name)"),
		}, "doctorName"),
		tb.searchDoctor)
	tb.register("getActiveDoctors",
		"Get list of all active doctors in the hospital. Use this when user asks for list of available doctors or wants to see all doctors.",
		objectSchema(map[string]any{}),
		tb.getActiveDoctors)
	tb.register("getDoctorBySpecialization",
		"Get doctors filtered by medical specialization (e.g., Sp.A for pediatrics, Sp.PD for internal medicine). Use this when user asks for doctors with specific specialization.",
		objectSchema(map[string]any{
			"specialization": stringProperty(`Medical specialization code or name (e.g., "Sp.A", "Sp.PD", "Sp.OG", "pediatri", "anak")`),
		}, "specialization"),
		tb.getDoctorBySpecialization)
	tb.register("getAllHospitals",
		"Get information about all hospital locations. Use this when user asks about hospital locations, addresses, or wants to see all available hospitals.",
		objectSchema(map[string]any{}),
		tb.getAllHospitals)
	tb.register("getHospitalByLocation",
		`Get specific hospital information by location name (e.g., "Gading Serpong", "Serang"). Use this when user asks about a specific hospital location.`,
		objectSchema(map[string]any{
			"location": stringProperty(`Location name or area (e.g., "Gading Serpong", "Serang", "Tangerang")`),
		}, "location"),
		tb.getHospitalByLocation)
	tb.register("getHospitalContact",
		"Get hospital contact information (phone, email, website). Use this when user asks for phone number, email, or how to contact the hospital. Can be filtered by location.",
		objectSchema(map[string]any{
			"location": stringProperty(`Optional: specific location name (e.g., "Gading Serpong"). If not provided, returns all hospital contacts.`),
		}),
		tb.getHospitalContact)

	return tb
}

func (tb *toolbox) register(name, description string, parameters map[string]any, run toolFunc) {
	tb.tools[name] = chatTool{
		definition: llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  parameters,
			},
		},
		run: run,
	}
	tb.order = append(tb.order, name)
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Definitions lists the catalog in registration order.
func (tb *toolbox) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(tb.order))
	for _, name := range tb.order {
		defs = append(defs, tb.tools[name].definition)
	}
	return defs
}

// Execute runs a requested call and returns its JSON-encoded result.
// Only an unknown tool name is an error.
func (tb *toolbox) Execute(ctx context.Context, call llms.ToolCall) (string, error) {
	name := ""
	rawArgs := ""
	if call.FunctionCall != nil {
		name = call.FunctionCall.Name
		rawArgs = call.FunctionCall.Arguments
	}

	tool, ok := tb.tools[name]
	if !ok {
		metrics.ChatToolCallsTotal.WithLabelValues("unknown").Inc()
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	metrics.ChatToolCallsTotal.WithLabelValues(name).Inc()

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Malformed tool arguments, running with none")
			args = map[string]any{}
		}
	}

	result := tool.run(ctx, args)
	encoded, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("Failed to encode tool result")
		return "null", nil
	}
	return string(encoded), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func (tb *toolbox) doctorList(name string, doctors []models.Doctor, err error) any {
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("Doctor lookup failed")
		return []models.Doctor{}
	}
	if doctors == nil {
		return []models.Doctor{}
	}
	log.Debug().Str("tool", name).Int("count", len(doctors)).Msg("Doctor lookup finished")
	return doctors
}

func (tb *toolbox) searchDoctor(ctx context.Context, args map[string]any) any {
	doctors, err := tb.doctors.SearchByName(ctx, stringArg(args, "doctorName"), searchDoctorLimit)
	return tb.doctorList("searchDoctor", doctors, err)
}

func (tb *toolbox) getActiveDoctors(ctx context.Context, _ map[string]any) any {
	doctors, err := tb.doctors.ListActive(ctx, activeDoctorsLimit)
	return tb.doctorList("getActiveDoctors", doctors, err)
}

func (tb *toolbox) getDoctorBySpecialization(ctx context.Context, args map[string]any) any {
	doctors, err := tb.doctors.FindBySpecialization(ctx, stringArg(args, "specialization"), doctorSpecializationLimit)
	return tb.doctorList("getDoctorBySpecialization", doctors, err)
}

func (tb *toolbox) getAllHospitals(ctx context.Context, _ map[string]any) any {
	hospitals, err := tb.hospitals.FindAll(ctx, repositories.SortByName)
	if err != nil {
		log.Error().Err(err).Msg("Error getting hospitals for chatbot")
		return []models.Hospital{}
	}
	if hospitals == nil {
		return []models.Hospital{}
	}
	return hospitals
}

func (tb *toolbox) getHospitalByLocation(ctx context.Context, args map[string]any) any {
	location := stringArg(args, "location")
	hospital, err := tb.hospitals.FindFirstByNameOrAddress(ctx, location)
	if err != nil {
		log.Error().Err(err).Str("location", location).Msg("Error getting hospital by location")
		return nil
	}
	if hospital == nil {
		log.Debug().Str("location", location).Msg("No hospital found for location")
		return nil
	}
	return hospital
}

// getHospitalContact matches on name only when a location is given,
// otherwise it lists every contact.
func (tb *toolbox) getHospitalContact(ctx context.Context, args map[string]any) any {
	location := stringArg(args, "location")
	if location != "" {
		hospital, err := tb.hospitals.FindFirstByName(ctx, location)
		if err != nil {
			log.Error().Err(err).Str("location", location).Msg("Error getting hospital contact")
			return nil
		}
		if hospital == nil {
			return nil
		}
		return hospital.Contact()
	}

	hospitals, err := tb.hospitals.FindAll(ctx, repositories.SortByName)
	if err != nil {
		log.Error().Err(err).Msg("Error getting hospital contacts")
		return nil
	}
	contacts := make([]models.HospitalContact, 0, len(hospitals))
	for i := range hospitals {
		contacts = append(contacts, hospitals[i].Contact())
	}
	return contacts
}
