package hero

// roster is the fixed slug/id table. Slugs match the stats source's engine
// names with the "npc_dota_hero_" prefix removed.
var roster = []Hero{
	{ID: 1, Slug: "antimage"},
	{ID: 2, Slug: "axe"},
	{ID: 3, Slug: "bane"},
	{ID: 4, Slug: "bloodseeker"},
	{ID: 5, Slug: "crystal_maiden"},
	{ID: 6, Slug: "drow_ranger"},
	{ID: 7, Slug: "earthshaker"},
	{ID: 8, Slug: "juggernaut"},
	{ID: 9, Slug: "mirana"},
	{ID: 10, Slug: "morphling"},
	{ID: 11, Slug: "shadow_fiend"},
	{ID: 12, Slug: "phantom_lancer"},
	{ID: 13, Slug: "puck"},
	{ID: 14, Slug: "pudge"},
	{ID: 15, Slug: "razor"},
	{ID: 16, Slug: "sand_king"},
	{ID: 17, Slug: "storm_spirit"},
	{ID: 18, Slug: "sven"},
	{ID: 19, Slug: "tiny"},
	{ID: 20, Slug: "vengeful_spirit"},
	{ID: 21, Slug: "windranger"},
	{ID: 22, Slug: "zeus"},
	{ID: 23, Slug: "kunkka"},
	{ID: 25, Slug: "lina"},
	{ID: 26, Slug: "lion"},
	{ID: 27, Slug: "shadow_shaman"},
	{ID: 28, Slug: "slardar"},
	{ID: 29, Slug: "tidehunter"},
	{ID: 30, Slug: "witch_doctor"},
	{ID: 31, Slug: "lich"},
	{ID: 32, Slug: "riki"},
	{ID: 33, Slug: "enigma"},
	{ID: 34, Slug: "tinker"},
	{ID: 35, Slug: "sniper"},
	{ID: 36, Slug: "necrolyte"},
	{ID: 37, Slug: "warlock"},
	{ID: 38, Slug: "beastmaster"},
	{ID: 39, Slug: "queenofpain"},
	{ID: 40, Slug: "venomancer"},
	{ID: 41, Slug: "faceless_void"},
	{ID: 42, Slug: "skeleton_king"},
	{ID: 43, Slug: "death_prophet"},
	{ID: 44, Slug: "phantom_assassin"},
	{ID: 45, Slug: "pugna"},
	{ID: 46, Slug: "templar_assassin"},
	{ID: 47, Slug: "viper"},
	{ID: 48, Slug: "luna"},
	{ID: 49, Slug: "dragon_knight"},
	{ID: 50, Slug: "dazzle"},
	{ID: 51, Slug: "rattletrap"},
	{ID: 52, Slug: "leshrac"},
	{ID: 53, Slug: "furion"},
	{ID: 54, Slug: "life_stealer"},
	{ID: 55, Slug: "dark_seer"},
	{ID: 56, Slug: "clinkz"},
	{ID: 57, Slug: "omniknight"},
	{ID: 58, Slug: "enchantress"},
	{ID: 59, Slug: "huskar"},
	{ID: 60, Slug: "night_stalker"},
	{ID: 61, Slug: "broodmother"},
	{ID: 62, Slug: "bounty_hunter"},
	{ID: 63, Slug: "weaver"},
	{ID: 64, Slug: "jakiro"},
	{ID: 65, Slug: "batrider"},
	{ID: 66, Slug: "chen"},
	{ID: 67, Slug: "spectre"},
	{ID: 68, Slug: "ancient_apparition"},
	{ID: 69, Slug: "doom_bringer"},
	{ID: 70, Slug: "ursa"},
	{ID: 71, Slug: "spirit_breaker"},
	{ID: 72, Slug: "gyrocopter"},
	{ID: 73, Slug: "alchemist"},
	{ID: 74, Slug: "invoker"},
	{ID: 75, Slug: "silencer"},
	{ID: 76, Slug: "obsidian_destroyer"},
	{ID: 77, Slug: "lycan"},
	{ID: 78, Slug: "brewmaster"},
	{ID: 79, Slug: "shadow_demon"},
	{ID: 80, Slug: "lone_druid"},
	{ID: 81, Slug: "chaos_knight"},
	{ID: 82, Slug: "meepo"},
	{ID: 83, Slug: "treant"},
	{ID: 84, Slug: "ogre_magi"},
	{ID: 85, Slug: "undying"},
	{ID: 86, Slug: "rubick"},
	{ID: 87, Slug: "disruptor"},
	{ID: 88, Slug: "nyx_assassin"},
	{ID: 89, Slug: "naga_siren"},
	{ID: 90, Slug: "keeper_of_the_light"},
	{ID: 91, Slug: "wisp"},
	{ID: 92, Slug: "visage"},
	{ID: 93, Slug: "slark"},
	{ID: 94, Slug: "medusa"},
	{ID: 95, Slug: "troll_warlord"},
	{ID: 96, Slug: "centaur"},
	{ID: 97, Slug: "magnataur"},
	{ID: 98, Slug: "shredder"},
	{ID: 99, Slug: "bristleback"},
	{ID: 100, Slug: "tusk"},
	{ID: 101, Slug: "skywrath_mage"},
	{ID: 102, Slug: "abaddon"},
	{ID: 103, Slug: "elder_titan"},
	{ID: 104, Slug: "legion_commander"},
	{ID: 105, Slug: "techies"},
	{ID: 106, Slug: "ember_spirit"},
	{ID: 107, Slug: "earth_spirit"},
	{ID: 108, Slug: "abyssal_underlord"},
	{ID: 109, Slug: "terrorblade"},
	{ID: 110, Slug: "phoenix"},
	{ID: 111, Slug: "oracle"},
	{ID: 112, Slug: "winter_wyvern"},
	{ID: 113, Slug: "arc_warden"},
	{ID: 114, Slug: "monkey_king"},
	{ID: 119, Slug: "dark_willow"},
	{ID: 120, Slug: "pangolier"},
	{ID: 121, Slug: "grimstroke"},
	{ID: 123, Slug: "hoodwink"},
	{ID: 126, Slug: "void_spirit"},
	{ID: 128, Slug: "snapfire"},
	{ID: 129, Slug: "mars"},
	{ID: 131, Slug: "ringmaster"},
	{ID: 135, Slug: "dawnbreaker"},
	{ID: 136, Slug: "marci"},
	{ID: 137, Slug: "primal_beast"},
	{ID: 138, Slug: "muerta"},
	{ID: 145, Slug: "kez"},
}
