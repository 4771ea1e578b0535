package source

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/havenpaws/prospect-cli/internal/candidate"
)

// builtinSeeds is the curated bank of organizations with documented animal
// welfare giving: pet-industry corporates and their charitable arms, vegan
// brands, CSR programs, and grant-making foundations.
var builtinSeeds = []candidate.Seed{
	{Name: "PetSmart Charities", Website: "https://www.petsmartcharities.org", Category: candidate.CategoryPetIndustry, Score: 10, Notes: "Dedicated animal welfare grant-making arm of PetSmart."},
	{Name: "Petco Love", Website: "https://petcolove.org", Category: candidate.CategoryPetIndustry, Score: 10, Notes: "Petco's charitable foundation. Grants to animal welfare orgs."},
	{Name: "Hill's Pet Nutrition Foundation", Website: "https://hillspet.com", Category: candidate.CategoryPetIndustry, Score: 9, Notes: "Science Diet maker. Active Food, Shelter, Love grant program."},
	{Name: "Purina Pro Plan Shelter Champions", Website: "https://proplanshelterstars.com", Category: candidate.CategoryPetIndustry, Score: 9, Notes: "Purina shelter support program - food and supplies."},
	{Name: "Royal Canin USA", Website: "https://www.royalcanin.com/us", Category: candidate.CategoryPetIndustry, Score: 8, Notes: "Partners with shelters and rescues for product donations."},
	{Name: "Banfield Foundation", Website: "https://banfieldfoundation.org", Category: candidate.CategoryPetIndustry, Score: 9, Notes: "Funds preventive veterinary care at shelters."},
	{Name: "Zoetis Petcare", Website: "https://www.zoetispetcare.com", Category: candidate.CategoryPetIndustry, Score: 8, Notes: "Animal health company with shelter support programs."},
	{Name: "Tractor Supply Company Foundation", Website: "https://www.tractorsupply.com", Category: candidate.CategoryPetIndustry, Score: 7, Notes: "Annual Rescue Express program supports shelters."},
	{Name: "KONG Company", Website: "https://www.kongcompany.com", Category: candidate.CategoryPetIndustry, Score: 7, Notes: "Donates products to shelters and rescue groups."},
	{Name: "Kuranda Dog Beds", Website: "https://www.kuranda.com", Category: candidate.CategoryPetIndustry, Score: 6, Notes: "Shelter dog bed donation program."},
	{Name: "Beyond Meat", Website: "https://www.beyondmeat.com", Category: candidate.CategoryVeganBrand, Score: 7, Notes: "Vegan brand with documented animal welfare giving."},
	{Name: "Impossible Foods", Website: "https://www.impossiblefoods.com", Category: candidate.CategoryVeganBrand, Score: 7, Notes: "Mission-aligned brand; has supported animal welfare causes."},
	{Name: "Oatly", Website: "https://www.oatly.com", Category: candidate.CategoryVeganBrand, Score: 6, Notes: "Values-driven brand; open to animal welfare co-promotion."},
	{Name: "Amazon (AmazonSmile / AWS Imagine Grant)", Website: "https://www.amazon.com/gp/charity", Category: candidate.CategoryCorporateCSR, Score: 8, Notes: "AmazonSmile donates 0.5% of purchases to nonprofits."},
	{Name: "Google.org", Website: "https://www.google.org", Category: candidate.CategoryCorporateCSR, Score: 7, Notes: "Google's philanthropic arm. Grants to nonprofits."},
	{Name: "Salesforce.org", Website: "https://www.salesforce.org", Category: candidate.CategoryCorporateCSR, Score: 7, Notes: "1-1-1 model. Grants + free tech to nonprofits."},
	{Name: "Microsoft Philanthropies", Website: "https://www.microsoft.com/en-us/philanthropies", Category: candidate.CategoryCorporateCSR, Score: 7, Notes: "Grants + in-kind tech to qualifying nonprofits."},
	{Name: "Maddie's Fund", Website: "https://www.maddiesfund.org", Category: candidate.CategoryFoundation, Score: 10, Notes: "Leading funder of animal shelter and rescue innovation."},
	{Name: "Petfinder Foundation", Website: "https://www.petfinderfoundation.com", Category: candidate.CategoryFoundation, Score: 9, Notes: "Direct grants to shelters and rescues."},
	{Name: "American Humane", Website: "https://www.americanhumane.org", Category: candidate.CategoryNonprofit, Score: 8, Notes: "Grant programs and partnerships for shelters."},
	{Name: "Doris Day Animal Foundation", Website: "https://www.dorisdayanimalfoundation.org", Category: candidate.CategoryFoundation, Score: 8, Notes: "Grants to companion animal shelters and spay/neuter programs."},
	{Name: "Grey Muzzle Organization", Website: "https://www.greymuzzle.org", Category: candidate.CategoryFoundation, Score: 7, Notes: "Grants specifically for senior dog programs at shelters."},
	{Name: "PetSafe Foundation", Website: "https://www.petsafe.net", Category: candidate.CategoryPetIndustry, Score: 7, Notes: "Product donations and grants to animal welfare orgs."},
}

// seedFile is the on-disk shape of a curated seed-list override file.
type seedFile struct {
	Seeds []candidate.Seed `yaml:"seeds"`
}

// LoadSeedFile reads a seeds.yaml file. Entries must carry a name.
func LoadSeedFile(path string) ([]candidate.Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read seed file %s", path)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "source: parse seed file %s", path)
	}

	seeds := make([]candidate.Seed, 0, len(f.Seeds))
	for _, s := range f.Seeds {
		if strings.TrimSpace(s.Name) == "" {
			return nil, eris.Errorf("source: seed file %s has an entry without a name", path)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// Seed serves the curated organization list. Always available; the only
// provider that needs no network.
type Seed struct {
	seeds []candidate.Seed
}

// NewSeed builds the seed provider. When path is non-empty the file's
// entries override builtins by name (case-insensitive) and unknown names
// are appended.
func NewSeed(path string) (*Seed, error) {
	seeds := make([]candidate.Seed, len(builtinSeeds))
	copy(seeds, builtinSeeds)

	if path != "" {
		extra, err := LoadSeedFile(path)
		if err != nil {
			return nil, err
		}
		byName := make(map[string]int, len(seeds))
		for i, s := range seeds {
			byName[strings.ToLower(s.Name)] = i
		}
		for _, s := range extra {
			if i, ok := byName[strings.ToLower(s.Name)]; ok {
				seeds[i] = s
				continue
			}
			byName[strings.ToLower(s.Name)] = len(seeds)
			seeds = append(seeds, s)
		}
	}

	return &Seed{seeds: seeds}, nil
}

// Seeds returns the effective curated list.
func (s *Seed) Seeds() []candidate.Seed {
	out := make([]candidate.Seed, len(s.seeds))
	copy(out, s.seeds)
	return out
}

func (s *Seed) Name() string { return "seed" }

func (s *Seed) Collect(_ context.Context, _ Request) (Result, error) {
	out := make([]candidate.Organization, 0, len(s.seeds))
	for _, seed := range s.seeds {
		out = append(out, candidate.FromSeed(seed))
	}
	zap.L().With(zap.String("component", "source.seed")).
		Debug("loaded seed organizations", zap.Int("count", len(out)))
	return Result{Candidates: out}, nil
}
