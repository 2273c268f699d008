package categorizer

import "github.com/insightdelivered/statement-insights/internal/models"

// DefaultConfig returns the built-in category rules. Order matters: the
// first category whose keywords match wins. Each call returns a fresh copy.
func DefaultConfig() Config {
	return Config{
		{Name: "Food & Dining", Keywords: []string{
			"restaurant", "cafe", "coffee", "starbucks", "pizza", "burger",
			"mcdonald", "subway", "chipotle", "domino", "taco", "kfc",
			"wendy", "dunkin", "bakery", "diner", "grill", "kitchen",
			"bar", "pub", "bistro", "food", "dining", "eatery", "doordash",
			"ubereats", "grubhub", "zomato", "swiggy", "delivery",
		}},
		{Name: "Groceries", Keywords: []string{
			"supermarket", "grocery", "walmart", "target", "costco",
			"safeway", "kroger", "albertsons", "whole foods", "trader joe",
			"aldi", "market", "fresh", "organic", "produce", "mart",
		}},
		{Name: "Transportation", Keywords: []string{
			"gas", "fuel", "shell", "chevron", "exxon", "bp", "mobil",
			"uber", "lyft", "taxi", "cab", "transit", "metro", "bus",
			"train", "parking", "toll", "transportation", "airline",
			"flight", "airport",
		}},
		{Name: "Shopping", Keywords: []string{
			"amazon", "ebay", "etsy", "shop", "store", "mall", "retail",
			"clothing", "apparel", "fashion", "shoes", "accessories",
			"electronics", "best buy", "apple store", "outlet", "boutique",
		}},
		{Name: "Entertainment", Keywords: []string{
			"movie", "cinema", "theater", "netflix", "hulu", "spotify",
			"disney", "hbo", "prime video", "youtube", "gaming", "steam",
			"playstation", "xbox", "concert", "event", "tickets", "ticketmaster",
		}},
		{Name: "Utilities", Keywords: []string{
			"electric", "electricity", "power", "gas company", "water",
			"sewer", "internet", "phone", "verizon", "at&t", "t-mobile",
			"sprint", "comcast", "spectrum", "utility", "bill",
		}},
		{Name: "Healthcare", Keywords: []string{
			"pharmacy", "cvs", "walgreens", "doctor", "hospital", "clinic",
			"medical", "dental", "dentist", "health", "wellness", "urgent care",
			"lab", "prescription", "medicine", "drug",
		}},
		{Name: "Rent/Housing", Keywords: []string{
			"rent", "lease", "apartment", "property", "landlord", "housing",
			"mortgage", "hoa", "home", "real estate", "realty",
		}},
		{Name: "Insurance", Keywords: []string{
			"insurance", "premium", "policy", "geico", "progressive",
			"state farm", "allstate", "coverage",
		}},
		{Name: "Education", Keywords: []string{
			"school", "university", "college", "tuition", "book", "course",
			"education", "learning", "academy", "institute", "udemy",
			"coursera", "textbook",
		}},
		{Name: "Subscriptions", Keywords: []string{
			"subscription", "monthly", "membership", "annual", "renew",
			"gym", "fitness", "planet fitness", "24 hour", "crunch",
			"adobe", "microsoft", "office 365", "dropbox", "icloud",
		}},
		{Name: "Personal Care", Keywords: []string{
			"salon", "spa", "barber", "haircut", "beauty", "cosmetic",
			"makeup", "skincare", "massage", "nail", "grooming",
		}},
		{Name: "Financial", Keywords: []string{
			"bank", "atm", "fee", "charge", "interest", "transfer",
			"payment", "withdrawal", "deposit",
		}},
		{Name: "Charity", Keywords: []string{
			"donation", "charity", "foundation", "nonprofit", "church",
			"temple", "mosque", "giving", "fundraiser",
		}},
		{Name: "Travel", Keywords: []string{
			"hotel", "motel", "resort", "booking", "airbnb", "hostel",
			"marriott", "hilton", "hyatt", "expedia", "travel", "vacation",
		}},
		{Name: "Pet Care", Keywords: []string{
			"pet", "vet", "veterinary", "petsmart", "petco", "grooming",
			"animal", "dog", "cat",
		}},
	}
}

// Config is an ordered list of category rules.
type Config []models.Category

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for i, cat := range c {
		out[i] = models.Category{Name: cat.Name, Keywords: append([]string(nil), cat.Keywords...)}
	}
	return out
}

// Index returns the position of the named category, or -1.
func (c Config) Index(name string) int {
	for i, cat := range c {
		if cat.Name == name {
			return i
		}
	}
	return -1
}

// Names lists category names in matching order.
func (c Config) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}

// Merge returns a new config with overrides applied. An override with an
// existing name replaces that category's keywords in place; new names are
// appended in override order.
func (c Config) Merge(overrides []models.Category) Config {
	out := c.Clone()
	for _, o := range overrides {
		kw := append([]string(nil), o.Keywords...)
		if i := out.Index(o.Name); i >= 0 {
			out[i].Keywords = kw
			continue
		}
		out = append(out, models.Category{Name: o.Name, Keywords: kw})
	}
	return out
}
