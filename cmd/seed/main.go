package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Spot is a named pickup/dropoff point used for demo trips.
type Spot struct {
	Address string
	Lat     float64
	Lon     float64
}

var spots = []Spot{
	{Address: "221B Baker Street, London", Lat: 51.5238, Lon: -0.1586},
	{Address: "350 5th Ave, New York", Lat: 40.7484, Lon: -73.9857},
	{Address: "Gran Via 28, Madrid", Lat: 40.4200, Lon: -3.7058},
	{Address: "Ledra Street 112, Nicosia", Lat: 35.1725, Lon: 33.3620},
	{Address: "Rue de Rivoli 99, Paris", Lat: 48.8606, Lon: 2.3376},
	{Address: "Istiklal Caddesi 54, Istanbul", Lat: 41.0346, Lon: 28.9777},
	{Address: "Queen Street 40, Cardiff", Lat: 51.4820, Lon: -3.1745},
	{Address: "Alexanderplatz 1, Berlin", Lat: 52.5219, Lon: 13.4132},
	{Address: "Orchard Road 313, Singapore", Lat: 1.3011, Lon: 103.8396},
	{Address: "Bay Street 181, Toronto", Lat: 43.6480, Lon: -79.3797},
}

var vehicleTypes = []string{"MOTORCYCLE", "CAR", "VAN", "TRUCK"}

var firstNames = []string{"Ayse", "Mehmet", "Elena", "Marcus", "Priya", "Tom", "Sofia", "Daniel"}
var lastNames = []string{"Yilmaz", "Demir", "Petrov", "Hughes", "Sharma", "Evans", "Rossi", "Okafor"}

func apiRequest(method, url, token string, payload interface{}) (int, map[string]interface{}, error) {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Some endpoints return arrays or empty bodies; callers that care
		// decode separately.
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, result, nil
}

// registerUser registers a demo user and returns its token and ID. If the
// email is already taken it falls back to logging in, so the seeder can be
// re-run against the same database.
func registerUser(apiURL, email, password, role string) (token, userID string, err error) {
	payload := map[string]interface{}{
		"email":        email,
		"phone_number": fmt.Sprintf("+4477%08d", rand.Intn(100000000)),
		"password":     password,
		"first_name":   firstNames[rand.Intn(len(firstNames))],
		"last_name":    lastNames[rand.Intn(len(lastNames))],
		"role":         role,
	}

	status, result, err := apiRequest(http.MethodPost, apiURL+"/auth/register", "", payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to register %s: %w", email, err)
	}
	if status == http.StatusConflict {
		status, result, err = apiRequest(http.MethodPost, apiURL+"/auth/login", "", map[string]string{
			"email":    email,
			"password": password,
		})
		if err != nil {
			return "", "", fmt.Errorf("failed to log in %s: %w", email, err)
		}
		if status != http.StatusOK {
			return "", "", fmt.Errorf("login for %s failed with status: %d", email, status)
		}
	} else if status != http.StatusCreated {
		return "", "", fmt.Errorf("registration for %s failed with status: %d", email, status)
	}

	token, _ = result["token"].(string)
	user, _ := result["user"].(map[string]interface{})
	userID, _ = user["id"].(string)
	if token == "" || userID == "" {
		return "", "", fmt.Errorf("invalid auth response for %s", email)
	}

	log.WithFields(log.Fields{"email": email, "role": role, "user_id": userID}).Info("User ready")
	return token, userID, nil
}

func createTrip(apiURL, ownerToken string) (string, error) {
	pickup := spots[rand.Intn(len(spots))]
	dropoff := spots[rand.Intn(len(spots))]
	for dropoff.Address == pickup.Address {
		dropoff = spots[rand.Intn(len(spots))]
	}

	payload := map[string]interface{}{
		"recipient_name":     firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))],
		"recipient_phone":    fmt.Sprintf("+4478%08d", rand.Intn(100000000)),
		"vehicle_type":       vehicleTypes[rand.Intn(len(vehicleTypes))],
		"pickup_address":     pickup.Address,
		"delivery_address":   dropoff.Address,
		"pickup_latitude":    pickup.Lat,
		"pickup_longitude":   pickup.Lon,
		"delivery_latitude":  dropoff.Lat,
		"delivery_longitude": dropoff.Lon,
		"pickup_time":        time.Now().Add(time.Duration(1+rand.Intn(48)) * time.Hour).Format(time.RFC3339),
	}

	status, result, err := apiRequest(http.MethodPost, apiURL+"/trips", ownerToken, payload)
	if err != nil {
		return "", fmt.Errorf("failed to create trip: %w", err)
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("trip creation failed with status: %d", status)
	}

	tripID, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid trip ID in response")
	}

	log.WithFields(log.Fields{
		"trip_id": tripID,
		"from":    pickup.Address,
		"to":      dropoff.Address,
	}).Info("Created trip")
	return tripID, nil
}

func joinCompany(apiURL, ownerToken, driverToken string) error {
	status, result, err := apiRequest(http.MethodGet, apiURL+"/companies/me", ownerToken, nil)
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("failed to fetch company (status %d): %v", status, err)
	}
	inviteCode, _ := result["invite_code"].(string)
	if inviteCode == "" {
		return fmt.Errorf("company has no invite code")
	}

	status, _, err = apiRequest(http.MethodPost, apiURL+"/companies/join", driverToken, map[string]string{
		"invite_code": inviteCode,
	})
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusConflict {
		return fmt.Errorf("join failed with status: %d", status)
	}
	log.WithField("invite_code", inviteCode).Info("Driver joined company")
	return nil
}

func createVehicle(apiURL, driverToken string) error {
	payload := map[string]interface{}{
		"type":                "VAN",
		"brand":               "Ford",
		"model":               "Transit",
		"year":                2020 + rand.Intn(5),
		"license_number":      fmt.Sprintf("LN%06d", rand.Intn(1000000)),
		"registration_number": fmt.Sprintf("REG%06d", rand.Intn(1000000)),
		"expiry_date":         time.Now().AddDate(1, 0, 0).Format(time.RFC3339),
		"colour":              "White",
	}
	status, _, err := apiRequest(http.MethodPost, apiURL+"/vehicles", driverToken, payload)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("vehicle creation failed with status: %d", status)
	}
	log.Info("Created vehicle")
	return nil
}

// runDelivery walks one trip through the full lifecycle: the owner assigns
// it, the driver starts it, reads the OTP off its own trip view and confirms,
// and the owner rates the completed delivery.
func runDelivery(apiURL, ownerToken, driverToken, tripID, driverID string) error {
	status, _, err := apiRequest(http.MethodPost, apiURL+"/trips/"+tripID+"/assign", ownerToken, map[string]string{
		"driver_id": driverID,
	})
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("assign failed (status %d): %v", status, err)
	}

	status, _, err = apiRequest(http.MethodPost, apiURL+"/trips/"+tripID+"/start", driverToken, nil)
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("start failed (status %d): %v", status, err)
	}

	// The OTP is only serialized for the assigned driver.
	status, trip, err := apiRequest(http.MethodGet, apiURL+"/trips/"+tripID, driverToken, nil)
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("trip fetch failed (status %d): %v", status, err)
	}
	otp, _ := trip["otp_code"].(string)
	if otp == "" {
		return fmt.Errorf("no OTP visible to assigned driver")
	}

	status, _, err = apiRequest(http.MethodPost, apiURL+"/trips/"+tripID+"/confirm", driverToken, map[string]string{
		"otp": otp,
	})
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("confirm failed (status %d): %v", status, err)
	}

	status, _, err = apiRequest(http.MethodPost, apiURL+"/trips/"+tripID+"/rate", ownerToken, map[string]int{
		"rating": 3 + rand.Intn(3),
	})
	if err != nil || status != http.StatusOK {
		return fmt.Errorf("rate failed (status %d): %v", status, err)
	}

	log.WithField("trip_id", tripID).Info("Delivery completed and rated")
	return nil
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "changeme-seed1"
	}

	tripCount := 5
	if val := os.Getenv("SEED_TRIPS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			tripCount = n
		}
	}

	log.WithFields(log.Fields{
		"api_url": apiURL,
		"trips":   tripCount,
	}).Info("Seeding demo data")

	ownerToken, _, err := registerUser(apiURL, "owner@dispatchly.dev", password, "COMPANY_OWNER")
	if err != nil {
		log.WithError(err).Fatal("Failed to set up company owner")
	}
	driverToken, driverID, err := registerUser(apiURL, "driver@dispatchly.dev", password, "COMPANY_DRIVER")
	if err != nil {
		log.WithError(err).Fatal("Failed to set up company driver")
	}
	if _, _, err := registerUser(apiURL, "solo@dispatchly.dev", password, "INDIVIDUAL_DRIVER"); err != nil {
		log.WithError(err).Error("Failed to set up individual driver")
	}

	if err := joinCompany(apiURL, ownerToken, driverToken); err != nil {
		log.WithError(err).Error("Failed to join company")
	}
	if err := createVehicle(apiURL, driverToken); err != nil {
		log.WithError(err).Error("Failed to create vehicle")
	}

	tripIDs := make([]string, 0, tripCount)
	for i := 0; i < tripCount; i++ {
		tripID, err := createTrip(apiURL, ownerToken)
		if err != nil {
			log.WithError(err).Error("Failed to create trip")
			continue
		}
		tripIDs = append(tripIDs, tripID)
	}
	if len(tripIDs) == 0 {
		log.Fatal("No trips created. Ensure the API is reachable. Exiting.")
	}

	// Drive the first trip through the whole lifecycle, cancel the second,
	// leave the rest pending for manual poking.
	if err := runDelivery(apiURL, ownerToken, driverToken, tripIDs[0], driverID); err != nil {
		log.WithError(err).Error("Failed to run delivery")
	}
	if len(tripIDs) > 1 {
		status, _, err := apiRequest(http.MethodPost, apiURL+"/trips/"+tripIDs[1]+"/cancel", ownerToken, nil)
		if err != nil || status != http.StatusOK {
			log.WithFields(log.Fields{"status": status}).WithError(err).Error("Failed to cancel trip")
		} else {
			log.WithField("trip_id", tripIDs[1]).Info("Cancelled trip")
		}
	}

	log.WithField("trips", len(tripIDs)).Info("Seeding completed")
}
